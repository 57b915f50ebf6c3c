package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"birdtag/api/internal/config"
	"birdtag/api/internal/middleware"
	"birdtag/api/internal/queue"
	"birdtag/api/internal/repository"
	"birdtag/api/internal/service"
	"birdtag/api/internal/storage"
)

type HandlerSet struct {
	log           zerolog.Logger
	cfg           *config.AppConfig
	db            *pgxpool.Pool
	cache         *redis.Client
	store         *storage.ObjectStore
	media         *repository.MediaRepository
	subscriptions *repository.SubscriptionRepository
	uploadService *service.UploadService
	deleteService *service.DeleteService
	tagService    *service.TagService
	searchService *service.SearchService
	detectService *service.DetectService
	notifyService *service.NotifyService
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, store *storage.ObjectStore, cfg *config.AppConfig) HandlerSet {
	mediaRepo := repository.NewMediaRepository(db)
	subsRepo := repository.NewSubscriptionRepository(db)
	producer := queue.NewProducer(cache, cfg.Detect.Stream)

	notify := service.NewNotifyService(subsRepo, service.NewRedisPublisher(cache), cfg.Notify.ChannelPrefix, log)
	upload := service.NewUploadService(mediaRepo, store, cfg.Storage.PresignTTL, log)
	del := service.NewDeleteService(mediaRepo, store, log)
	tag := service.NewTagService(mediaRepo, notify, log)
	search := service.NewSearchService(mediaRepo)
	detect := service.NewDetectService(mediaRepo, store, producer, log)

	return HandlerSet{
		log:           log,
		cfg:           cfg,
		db:            db,
		cache:         cache,
		store:         store,
		media:         mediaRepo,
		subscriptions: subsRepo,
		uploadService: upload,
		deleteService: del,
		tagService:    tag,
		searchService: search,
		detectService: detect,
		notifyService: notify,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	v1.Use(middleware.Auth(h.cfg))
	{
		media := v1.Group("/media")
		media.POST("/upload", h.CreateUpload)
		media.POST("/delete", h.DeleteMedia)
		media.GET("/resolve", h.ResolveThumbnail)
		media.POST("/:fileId/tags/decrement", h.DecrementTag)

		v1.POST("/tags", h.UpdateTags)

		search := v1.Group("/search")
		search.GET("/tags", h.SearchTags)
		search.GET("/species", h.SearchSpecies)
		search.GET("/file", h.SearchFile)

		subs := v1.Group("/subscriptions")
		subs.POST("", h.Subscribe)
		subs.DELETE("", h.Unsubscribe)
		subs.GET("", h.ListSubscriptions)

		admin := v1.Group("/admin")
		admin.Use(middleware.RequireRoles("admin"))
		admin.GET("/media", h.AdminListMedia)
	}
}
