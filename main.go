package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"docchat/internal/bus"
	"docchat/internal/client"
	"docchat/internal/config"
	"docchat/internal/controller"
	"docchat/internal/models"
	"docchat/internal/poller"
	"docchat/internal/redis"
	"docchat/internal/session"
	"docchat/internal/storage"
	"docchat/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "upload":
		runUpload(os.Args[2:])
	case "watch":
		runWatch()
	case "ask":
		runAsk(os.Args[2:])
	case "show":
		runShow()
	case "reset":
		runReset()
	case "help", "--help", "-h":
		printHelp()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		printHelp()
		os.Exit(2)
	}
}

func printHelp() {
	fmt.Println(`docchat - client for the document QA demo backend

Usage:
  docchat upload <file.pdf>   upload a PDF and watch ingestion progress
  docchat watch               follow the active session's ingestion status
  docchat ask <question...>   ask a question against the ready document
  docchat show                print the active session and transcript
  docchat reset               delete the document and clear the session

Configuration is read from $DOCCHAT_CONFIG (default ./config.json).`)
}

// app holds the wired-up client subsystem for one CLI invocation.
type app struct {
	cfg      *config.Config
	api      *client.Client
	sessions *session.Manager
	cleanup  []func()
}

func newApp() *app {
	cfg, err := config.Load(os.Getenv("DOCCHAT_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	a := &app{cfg: cfg, api: client.New(cfg.APIBase)}

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb, err = redis.NewClient(cfg.Redis)
		if err != nil {
			log.Fatalf("connect redis: %v", err)
		}
		a.cleanup = append(a.cleanup, func() { rdb.Close() })
	}

	var st store.Store
	switch strings.ToLower(cfg.Storage.Driver) {
	case "memory":
		st, err = store.NewStore(store.StoreTypeMemory)
	case "redis":
		if rdb == nil {
			log.Fatalf("storage driver redis requires a redis config")
		}
		st, err = store.NewStore(store.StoreTypeRedis, store.WithRedisClient(rdb))
	default:
		db, dbErr := storage.Open(cfg.Storage)
		if dbErr != nil {
			log.Fatalf("open database: %v", dbErr)
		}
		a.cleanup = append(a.cleanup, func() { db.Close() })
		if err := storage.Migrate(db, cfg.Storage.Driver); err != nil {
			log.Fatalf("migrate database: %v", err)
		}
		st, err = store.NewStore(store.StoreTypeSQL, store.WithDB(db, cfg.Storage.Driver))
	}
	if err != nil {
		log.Fatalf("create store: %v", err)
	}
	a.cleanup = append(a.cleanup, func() { st.Close() })

	var b bus.Bus
	if rdb != nil {
		if !cfg.SharedStore() {
			log.Printf("warning: redis bus with per-machine %q store; remote announcements cannot converge. Use the redis or mysql store driver for cross-instance sessions", cfg.Storage.Driver)
		}
		b, err = bus.NewRedis(rdb)
		if err != nil {
			log.Fatalf("create bus: %v", err)
		}
	} else {
		b = bus.NewLocal()
	}
	a.cleanup = append(a.cleanup, func() { b.Close() })

	a.sessions = session.NewManager(st, b)
	return a
}

func (a *app) close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
}

func (a *app) poller() *poller.Poller {
	return poller.New(a.api.Status, a.sessions, a.cfg.Poll.Interval(), a.cfg.Poll.Timeout())
}

// interruptible returns a context cancelled on SIGINT/SIGTERM.
func interruptible() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runUpload(args []string) {
	if len(args) != 1 {
		log.Fatalf("usage: docchat upload <file.pdf>")
	}
	a := newApp()
	defer a.close()
	ctx, cancel := interruptible()
	defer cancel()

	uploads := controller.NewUploadController(a.api, a.sessions)
	s, err := uploads.Submit(ctx, args[0])
	if err != nil {
		log.Fatalf("upload: %v", err)
	}
	if s == nil {
		return
	}
	fmt.Printf("uploaded %s (upload_id %s): %s\n", s.Filename, s.UploadID, s.Status)

	unsubscribe := a.sessions.Subscribe(func(s *models.Session) {
		if s != nil {
			fmt.Printf("  %s\n", s.Status)
		}
	})
	defer unsubscribe()

	state := a.poller().Run(ctx, s)
	fmt.Printf("ingestion %s\n", state)
	if state == poller.Completed {
		fmt.Println("ready for chat: docchat ask <question>")
	}
}

func runWatch() {
	a := newApp()
	defer a.close()
	ctx, cancel := interruptible()
	defer cancel()

	s, err := a.sessions.Load(ctx)
	if err != nil {
		log.Fatalf("load session: %v", err)
	}
	if s == nil {
		fmt.Println("no active session; upload a PDF first")
		return
	}
	fmt.Printf("%s (upload_id %s): %s [%s]\n", s.Filename, s.UploadID, s.Status, session.Gate(s))

	unsubscribe := a.sessions.Subscribe(func(s *models.Session) {
		if s == nil {
			fmt.Println("session cleared")
			return
		}
		fmt.Printf("  %s [%s]\n", s.Status, session.Gate(s))
	})
	defer unsubscribe()

	supervisor := poller.NewSupervisor(a.poller(), nil)
	detach := supervisor.Attach(ctx, a.sessions, s)
	defer detach()

	<-ctx.Done()
}

func runAsk(args []string) {
	if len(args) == 0 {
		log.Fatalf("usage: docchat ask <question...>")
	}
	a := newApp()
	defer a.close()
	ctx, cancel := interruptible()
	defer cancel()

	chat := controller.NewChatController(a.api, a.sessions)
	msgs, err := chat.Ask(ctx, strings.Join(args, " "))
	if err != nil {
		log.Fatalf("ask: %v", err)
	}
	if len(msgs) > 0 {
		fmt.Println(msgs[len(msgs)-1].Content)
	}
}

func runShow() {
	a := newApp()
	defer a.close()
	ctx, cancel := interruptible()
	defer cancel()

	s, err := a.sessions.Load(ctx)
	if err != nil {
		log.Fatalf("load session: %v", err)
	}
	if s == nil {
		fmt.Println("no active session")
		return
	}
	fmt.Printf("%s (upload_id %s)\n", s.Filename, s.UploadID)
	fmt.Printf("uploaded: %s\n", s.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("status:   %s [%s]\n", s.Status, session.Gate(s))

	msgs, err := a.sessions.Messages(ctx)
	if err != nil {
		log.Fatalf("load messages: %v", err)
	}
	for _, m := range msgs {
		fmt.Printf("\n[%s] %s\n", m.Role, m.Content)
	}
}

func runReset() {
	a := newApp()
	defer a.close()
	ctx, cancel := interruptible()
	defer cancel()

	resets := controller.NewResetController(a.api, a.sessions)
	if err := resets.Reset(ctx); err != nil {
		log.Fatalf("reset: %v", err)
	}
	fmt.Println("session cleared")
}
