package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"lesson-progress-service/internal/app"
	"lesson-progress-service/internal/config"
	"lesson-progress-service/internal/domain"
	"lesson-progress-service/internal/infra/memory"
	"lesson-progress-service/internal/infra/postgres"
	infraredis "lesson-progress-service/internal/infra/redis"
	transport "lesson-progress-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// backends holds the stores chosen from config: Postgres for durable records when
// postgres.url is set, Redis for the leaderboard, locks and catalog cache when
// redis.addr is set, memory otherwise.
type backends struct {
	cfg           config.Config
	stores        app.Stores
	notifications notificationSink
	notifier      app.Notifier
	locks         app.Locker
	closers       []func()
}

// notificationSink stores notifications and can be used as a Notifier directly.
type notificationSink interface {
	app.NotificationStore
	app.Notifier
}

func buildBackends(ctx context.Context, configPath string) (*backends, error) {
	cfg, err := config.Load(configPath, false)
	if err != nil {
		return nil, err
	}
	b := &backends{cfg: cfg}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = redisClient.Close() })
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, time.Minute)
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		db := postgres.OpenDB(cfg.Postgres.URL)
		b.closers = append(b.closers, func() { _ = db.Close() })

		loader := postgres.NewCatalogLoader(pool)
		if redisClient != nil {
			b.stores.Catalog = infraredis.NewCatalogCache(redisClient, loader, catalogTTL)
		} else {
			b.stores.Catalog = memory.NewCachedCatalog(loader, catalogTTL)
		}
		b.stores.Answers = postgres.NewAnswerStore(db)
		b.stores.Leaderboard = postgres.NewLeaderboardStore(db)
		b.stores.Progress = postgres.NewProgressStore(db)
		b.notifications = postgres.NewNotificationStore(db)
	} else {
		data := sampleCatalog()
		if cfg.Catalog.File != "" {
			file, err := config.LoadCatalog(cfg.Catalog.File)
			if err != nil {
				return nil, err
			}
			data = memory.CatalogData{Users: file.Users, Courses: file.Courses, Lessons: file.Lessons, Questions: file.Questions}
		}
		b.stores.Catalog = memory.NewCatalog(data)
		b.stores.Answers = memory.NewAnswerStore()
		b.stores.Leaderboard = memory.NewLeaderboardStore()
		b.stores.Progress = memory.NewProgressStore()
		b.notifications = memory.NewNotificationStore()
	}

	notifiers := app.Notifiers{b.notifications, app.LogNotifier{}}
	if redisClient != nil {
		b.stores.Leaderboard = infraredis.NewLeaderboardStore(redisClient)
		b.locks = infraredis.NewLocker(redisClient, config.TTLDuration(cfg.Redis.LockTTL, 30*time.Second))
		if cfg.Notifications.Publish {
			notifiers = append(notifiers, infraredis.NewPublisher(redisClient))
		}
	} else {
		b.locks = memory.NewLocker()
	}
	b.notifier = notifiers
	return b, nil
}

func (b *backends) submissionService() *app.SubmissionService {
	return app.NewSubmissionService(b.stores, b.locks, b.notifier, app.NewLeaderboardFeed(), app.Options{
		FollowUpTimeout: config.TTLDuration(b.cfg.Submission.FollowUpTimeout, 0),
		NotifyTimeout:   config.TTLDuration(b.cfg.Notifications.Timeout, 0),
		FeedSize:        b.cfg.Submission.FeedSize,
	})
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	b, err := buildBackends(ctx, configPath)
	if err != nil {
		return err
	}
	defer b.Close()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = b.cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	service := b.submissionService()
	reports := app.NewReportService(b.stores, b.notifications)

	mux := http.NewServeMux()
	transport.NewHandler(service, reports).Register(mux, transport.NewWSHandler(service))

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting progress service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	service.Wait()
	return err
}

// sampleCatalog serves the demo lesson when neither Postgres nor catalog.file is configured.
func sampleCatalog() memory.CatalogData {
	return memory.CatalogData{
		Users:   []domain.User{{ID: "u1", Name: "Alice"}, {ID: "u2", Name: "Bob"}},
		Courses: []domain.Course{{ID: "c1", Name: "Maths"}},
		Lessons: []domain.Lesson{{ID: "l1", CourseID: "c1", Name: "Addition"}},
		Questions: []domain.Question{
			{ID: "q1", LessonID: "l1", CourseID: "c1", Name: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectAnswer: "4"},
			{ID: "q2", LessonID: "l1", CourseID: "c1", Name: "What is 3 + 3?", Options: []string{"5", "6", "7"}, CorrectAnswer: "6"},
		},
	}
}
