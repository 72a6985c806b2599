package main

import (
	"context"
	"net/http"
	"time"

	"github.com/JaewonYunDS/Filmind/internal/auth"
	"github.com/JaewonYunDS/Filmind/internal/catalog"
	"github.com/JaewonYunDS/Filmind/internal/config"
	"github.com/JaewonYunDS/Filmind/internal/database"
	"github.com/JaewonYunDS/Filmind/internal/forum"
	"github.com/JaewonYunDS/Filmind/internal/handlers"
	"github.com/JaewonYunDS/Filmind/internal/logging"
	"github.com/JaewonYunDS/Filmind/internal/services"
	"github.com/JaewonYunDS/Filmind/internal/session"
	"github.com/JaewonYunDS/Filmind/internal/store"
	"github.com/JaewonYunDS/Filmind/internal/tracker"
	"github.com/JaewonYunDS/Filmind/internal/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.L().Fatal().Err(err).Msg("invalid configuration")
	}

	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log := logging.L()

	// Local fallback store is always available and pre-seeded so community
	// pages render in guest/offline mode.
	local := store.NewLocal()
	local.Seed()

	// The durable store is optional at startup: if it does not come up
	// within the init window the server runs local-only and the breaker
	// keeps probing.
	var resilient *store.Resilient
	db, err := database.Connect(cfg.DatabasePath)
	if err != nil {
		log.Warn().Err(err).Msg("durable store unavailable, starting in local-only mode")
	} else {
		defer db.Close()

		if err := database.RunMigrations(db); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
		if err := database.WaitReady(context.Background(), db, cfg.InitTimeout); err != nil {
			log.Warn().Err(err).Msg("durable store not ready, starting in local-only mode")
		} else {
			remote := store.NewRemote(db)
			resilient = store.NewResilient(remote)

			// Counters can fall behind when a post lands but its counter
			// bump fails; rewrite them from live counts on a schedule.
			go func() {
				ticker := time.NewTicker(15 * time.Minute)
				defer ticker.Stop()
				for range ticker.C {
					if err := remote.ReconcileCounters(context.Background()); err != nil {
						log.Warn().Err(err).Msg("counter reconciliation failed")
					}
				}
			}()
		}
	}

	selector := store.NewSelector(resilient, local)

	// Auth
	authMiddleware, err := auth.NewMiddleware(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create auth middleware")
	}

	var profiles session.ProfileReader
	if resilient != nil {
		profiles = resilient
	}
	sessionManager := session.NewManager(cfg.Auth.URL, cfg.Auth.AnonKey, profiles)
	sessionManager.OnChange(func(state session.State, user *types.Identity) {
		log.Info().Str("state", string(state)).Msg("session state changed")
	})

	// Domain services
	catalogClient := catalog.NewClient(cfg.TMDB.APIKey, cfg.TMDB.BaseURL)
	forumEngine := forum.NewEngine(selector)
	trackerService := tracker.NewService(catalogClient, selector)

	// Handlers
	sessionHandler := handlers.NewSessionHandler(sessionManager, selector)
	movieHandler := handlers.NewMovieHandler(trackerService)
	forumHandler := handlers.NewForumHandler(forumEngine, selector)

	mux := http.NewServeMux()

	// Health check (no auth required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// JWT parsing on all API routes; guests pass through and land on the
	// local store. requireUser gates the strictly-authenticated routes.
	withAuth := auth.Protect(authMiddleware)
	requireUser := func(h http.HandlerFunc) http.Handler {
		return withAuth(auth.RequireIdentity(h))
	}

	// Session routes
	mux.HandleFunc("POST /api/auth/signup", sessionHandler.SignUp)
	mux.HandleFunc("POST /api/auth/signin", sessionHandler.SignIn)
	mux.HandleFunc("POST /api/auth/signout", sessionHandler.SignOut)
	mux.HandleFunc("GET /api/auth/me", sessionHandler.CurrentUser)

	// Movie routes
	mux.Handle("GET /api/movies/search", withAuth(http.HandlerFunc(movieHandler.SearchMovies)))
	mux.Handle("GET /api/movies/{movieId}", withAuth(http.HandlerFunc(movieHandler.GetMovie)))
	mux.Handle("POST /api/movies/{movieId}/watched", withAuth(http.HandlerFunc(movieHandler.ToggleWatched)))
	mux.Handle("POST /api/movies/{movieId}/review", withAuth(http.HandlerFunc(movieHandler.SaveReview)))
	mux.Handle("GET /api/me/watched", withAuth(http.HandlerFunc(movieHandler.WatchedMovies)))
	mux.Handle("GET /api/me/reviews", withAuth(http.HandlerFunc(movieHandler.Reviews)))
	mux.Handle("GET /api/me/stats", withAuth(http.HandlerFunc(movieHandler.ProfileStats)))

	// Forum routes
	mux.Handle("GET /api/forums", withAuth(http.HandlerFunc(forumHandler.ListForums)))
	mux.Handle("POST /api/forums", withAuth(http.HandlerFunc(forumHandler.CreateForum)))
	mux.Handle("GET /api/forums/{forumId}/threads", withAuth(http.HandlerFunc(forumHandler.ListThreads)))
	mux.Handle("POST /api/forums/{forumId}/threads", withAuth(http.HandlerFunc(forumHandler.CreateThread)))
	mux.Handle("GET /api/threads/{threadId}", withAuth(http.HandlerFunc(forumHandler.GetThread)))
	mux.Handle("POST /api/threads/{threadId}/comments", withAuth(http.HandlerFunc(forumHandler.CreateComment)))
	mux.Handle("POST /api/votes/{votableType}/{votableId}", withAuth(http.HandlerFunc(forumHandler.Vote)))

	// Plex import runs against the durable store only
	if cfg.Plex.Enabled && db != nil {
		jobManager := services.NewJobManager(db, cfg.Plex.Workers)
		plexClient := services.NewPlexClient()
		jobManager.RegisterProcessor(services.NewPlexImporter(plexClient, catalogClient, selector, jobManager))
		jobManager.Start()
		defer jobManager.Stop()

		go func() {
			ticker := time.NewTicker(24 * time.Hour)
			defer ticker.Stop()
			for range ticker.C {
				if err := jobManager.CleanupOldJobs(30); err != nil {
					log.Warn().Err(err).Msg("job cleanup failed")
				}
			}
		}()

		plexHandler := handlers.NewPlexHandler(plexClient, jobManager)
		mux.Handle("GET /api/plex/servers", requireUser(plexHandler.ListServers))
		mux.Handle("GET /api/plex/libraries", requireUser(plexHandler.ListLibraries))
		mux.Handle("POST /api/plex/import", requireUser(plexHandler.StartImport))
		mux.Handle("GET /api/plex/jobs", requireUser(plexHandler.ListJobs))
		mux.Handle("GET /api/plex/jobs/{jobId}", requireUser(plexHandler.GetJob))
		mux.Handle("POST /api/plex/jobs/{jobId}/cancel", requireUser(plexHandler.CancelJob))
	}

	log.Info().Str("port", cfg.Port).Bool("durable_store", resilient != nil).Msg("server starting")
	if err := http.ListenAndServe(":"+cfg.Port, mux); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
