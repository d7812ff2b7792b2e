package router

import (
	"image"
	"net/http"

	"mliang-listings/internal/application/editsession"
	listsvc "mliang-listings/internal/application/listings"
	"mliang-listings/internal/application/share"
	uploadsvc "mliang-listings/internal/application/uploads"
	wm "mliang-listings/internal/application/watermark"
	"mliang-listings/internal/config"
	"mliang-listings/internal/domain"
	"mliang-listings/internal/infrastructure/database"
	"mliang-listings/internal/infrastructure/objectstore"
	"mliang-listings/internal/infrastructure/supabase"
	editorhandler "mliang-listings/internal/interfaces/handlers/editor"
	healthhandler "mliang-listings/internal/interfaces/handlers/health"
	listhandler "mliang-listings/internal/interfaces/handlers/listings"
	uploadhandler "mliang-listings/internal/interfaces/handlers/uploads"
	wmhandler "mliang-listings/internal/interfaces/handlers/watermark"
	"mliang-listings/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateApp builds the Fiber app and every dependency it serves from.
// The returned DB and Redis client are nil when not configured.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
		BodyLimit:               200 << 20,
	})

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		rdb = redis.NewClient(opts)
	}

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	if rdb != nil {
		app.Use(middleware.HealthMarker(rdb))
	}
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		SupabaseURL:    cfg.SupabaseURL,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	if db != nil {
		hh.DB = &gormDBPinger{db: db}
	}
	app.Get("/", hh.Summary)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	schema, err := domain.LoadSchema(cfg.FieldSchemaPath)
	if err != nil {
		return nil, nil, nil, err
	}
	sb := supabase.New(cfg.SupabaseURL, cfg.SupabaseKey)

	var store listsvc.Store
	switch {
	case cfg.ListingStore == config.StorePostgres && db != nil:
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
		store = &listsvc.GormStore{DB: db}
	case sb.Configured():
		store = &listsvc.PostgrestStore{Client: sb, Table: cfg.ListingsTable}
	default:
		log.Warn().Msg("listing store not configured; listing routes answer 503")
	}
	ls := &listsvc.Service{Store: store, Schema: schema}

	objects, err := objectStore(cfg, sb)
	if err != nil {
		return nil, nil, nil, err
	}

	compositor, err := wm.NewCompositor(nil)
	if err != nil {
		return nil, nil, nil, err
	}
	var logo image.Image
	if cfg.LogoPath != "" {
		if logo, err = wm.LoadLogo(cfg.LogoPath); err != nil {
			log.Warn().Err(err).Str("path", cfg.LogoPath).Msg("logo unavailable; watermarks fall back to contact text")
			logo = nil
		}
	}
	policy, err := wm.ParsePolicy(cfg.BatchPolicy)
	if err != nil {
		return nil, nil, nil, err
	}

	// Listings
	lh := &listhandler.Handlers{
		Service:   ls,
		Signature: share.DefaultSignature(cfg.ContactNumber),
		Videos:    share.LocationVideos(cfg.LocationVideos),
		PageURL:   cfg.PublicPageURL,
	}
	lg := app.Group("/api/v1/listings")
	lg.Get("/", lh.View)
	lg.Post("/", lh.Create)
	lg.Get("/form", lh.Form)
	lg.Get("/export", lh.Export)
	lg.Post("/import", lh.Import)
	lg.Post("/delete", lh.DeleteMany)
	lg.Post("/select-all", lh.SelectAll)
	lg.Post("/parse-row", lh.ParseRow)
	lg.Put("/:id", lh.Update)
	lg.Delete("/:id", lh.Delete)
	lg.Get("/:id/share", lh.Share)
	lg.Get("/:id/post", lh.Post)
	lg.Get("/:id/events", lh.Events)

	// Watermark
	wh := &wmhandler.Handlers{Compositor: compositor, Logo: logo, Contact: cfg.ContactNumber, Policy: policy}
	wg := app.Group("/api/v1/watermark")
	wg.Post("/compose", wh.Compose)
	wg.Post("/batch", wh.Batch)

	// Uploads
	up := &uploadsvc.Service{Store: objects, Listings: ls, Compositor: compositor, Logo: logo, Policy: policy}
	uph := &uploadhandler.Handlers{Service: up, Contact: cfg.ContactNumber}
	upg := app.Group("/api/v1/uploads")
	upg.Post("/photos", uph.Photos)
	upg.Post("/sign", uph.Sign)

	// Editor hand-off
	eh := &editorhandler.Handlers{
		Sessions:   &editsession.Store{Rdb: rdb, TTL: cfg.EditSessionTTL},
		Compositor: compositor,
		Logo:       logo,
		Contact:    cfg.ContactNumber,
	}
	eg := app.Group("/api/v1/editor/sessions")
	eg.Post("/", eh.Create)
	eg.Get("/:token", eh.Get)
	eg.Post("/:token/render", eh.Render)
	eg.Delete("/:token", eh.Delete)

	return app, db, rdb, nil
}

// objectStore picks the photo bucket backend. A nil store leaves the upload
// routes answering 503.
func objectStore(cfg *config.Config, sb *supabase.Client) (uploadsvc.ObjectStore, error) {
	switch cfg.ObjectStore {
	case config.ObjectStoreMinio:
		if cfg.MinioEndpoint == "" {
			log.Warn().Msg("OBJECT_STORE=minio without MINIO_ENDPOINT; uploads disabled")
			return nil, nil
		}
		m, err := objectstore.NewMinioStore(objectstore.Config{
			Endpoint:      cfg.MinioEndpoint,
			AccessKey:     cfg.MinioAccessKey,
			SecretKey:     cfg.MinioSecretKey,
			Bucket:        cfg.PhotoBucket,
			UseSSL:        cfg.MinioUseSSL,
			PublicBaseURL: cfg.MinioPublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		if !sb.Configured() {
			log.Warn().Msg("supabase storage not configured; uploads disabled")
			return nil, nil
		}
		return &supabase.Bucket{Client: sb, Name: cfg.PhotoBucket, CacheControl: "3600"}, nil
	}
}

// Handler adapts the app for net/http hosts (serverless entrypoint).
func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
