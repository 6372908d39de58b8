package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"paper-harvest/config"
	"paper-harvest/datasources"
	"paper-harvest/datasources/arxiv"
	"paper-harvest/models"
	"paper-harvest/services"
	"paper-harvest/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var newPapersCounter prometheus.Counter

func init() {
	newPapersCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "new_papers_added_total",
			Help: "Total number of new papers added to the database.",
		},
	)
	prometheus.MustRegister(newPapersCounter)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}
	defaultCursor, err := cfg.CursorDate()
	if err != nil {
		logging.Fatal("Config error", zap.Error(err))
	}

	// Setup Database Connection
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to papers database.")

	// Auto-Migration
	logging.Info("Running database auto-migration...")
	db.AutoMigrate(
		&models.Datasource{},
		&models.Domain{},
		&models.Subject{},
		&models.Author{},
		&models.Paper{},
		&models.PaperSubject{},
		&models.PaperAuthor{},
		&models.IngestionState{},
	)

	// Gemeinsamer HTTP-Client für alle OAI-Abrufe
	httpClient := &http.Client{
		Timeout: cfg.RequestTimeout(),
		Transport: &http.Transport{
			MaxConnsPerHost:     cfg.MaxConnections,
			MaxIdleConnsPerHost: cfg.MaxConnections,
		},
	}

	// Optionales Roh-Archiv in S3
	var archiver datasources.PageArchiver
	if cfg.ArchiveRawPages {
		s3Client, err := storage.NewS3Client(cfg)
		if err != nil {
			logging.Fatal("S3 client creation failed", zap.Error(err))
		}
		archiver = &storage.PageArchiver{Client: s3Client, Bucket: cfg.StratoS3Bucket, Logger: logging}
		logging.Info("Raw page archiving enabled", zap.String("bucket", cfg.StratoS3Bucket))
	}

	// Setup Datasources. Die Maps werden einmalig hier aufgebaut und danach
	// nur gelesen.
	fetchers := make(map[datasources.Kind]datasources.CategoryFetcher)
	ingestions := make(map[datasources.Kind]datasources.PaperMetadataIngestion)
	for _, name := range cfg.Datasources() {
		kind, err := datasources.ParseKind(name)
		if err != nil {
			logging.Warn("Unknown datasource in config", zap.String("datasource_name", name))
			continue
		}
		switch kind {
		case datasources.KindArxiv:
			fetchers[kind] = &arxiv.CategoryFetcher{Client: httpClient, BaseURL: cfg.ArxivBaseURL, Logger: logging}
			ingestions[kind] = arxiv.NewIngestion(httpClient, cfg.ArxivBaseURL, archiver, logging)
		}
	}
	if len(fetchers) == 0 {
		logging.Fatal("No valid datasources enabled. Check ENABLED_DATASOURCES in .env")
	}
	logging.Info("Active datasources loaded", zap.Strings("datasources", cfg.Datasources()))

	// Setup Services
	categoryService := services.NewCategoryIngestionService(db, logging)
	paperService := services.NewPaperIngestionService(db, logging, ingestions)
	stateService := services.NewIngestionStateService(db, logging)
	harvestService := services.NewHarvestService(db, logging, fetchers, categoryService, paperService, stateService, defaultCursor)

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Setup Routes
	setupPaperRoutes(router, db, logging)
	setupTaxonomyRoutes(router, db, logging)
	setupIngestionStateRoutes(router, stateService, logging)
	setupHarvestRoutes(router, harvestService, logging)

	// Setup Cron
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.CronSchedule, func() {
		logging.Info("Running scheduled harvest job...")
		count := harvestService.RunAll(context.Background())
		newPapersCounter.Add(float64(count))
		logging.Info("Scheduled harvest job finished.", zap.Int("new_papers", count))
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func setupPaperRoutes(router *gin.Engine, db *gorm.DB, log *zap.Logger) {
	rg := router.Group("/papers")

	// Einfacher GET-Endpunkt, um alle Paper abzurufen (ohne Filter)
	rg.GET("/", func(c *gin.Context) {
		var papers []models.Paper
		if err := db.Find(&papers).Error; err != nil {
			log.Error("Database query for all papers failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, papers)
	})

	// GET über den natürlichen Schlüssel der Datasource
	rg.GET("/by-identifier/:identifier", func(c *gin.Context) {
		identifier := c.Param("identifier")
		var paper models.Paper
		if err := db.Where("paper_identifier = ?", identifier).First(&paper).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "paper not found"})
				return
			}
			log.Error("Database query for paper failed", zap.String("identifier", identifier), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, paper)
	})

	// Body-gesteuerter Endpunkt für komplexe Abfragen
	rg.POST("/query", func(c *gin.Context) {
		type PaperQuery struct {
			DomainCode  string `json:"domain_code"`
			SubjectCode string `json:"subject_code"`
			Author      string `json:"author"`
			FromDate    string `json:"from_date"`
			UntilDate   string `json:"until_date"`
			Limit       int    `json:"limit"`
		}

		var req PaperQuery
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		query := db.Model(&models.Paper{})

		if req.DomainCode != "" {
			query = query.Joins("JOIN domains ON domains.id = papers.domain_id").
				Where("domains.code = ?", req.DomainCode)
		}
		if req.SubjectCode != "" {
			query = query.Joins("JOIN paper_subjects ON paper_subjects.paper_id = papers.id").
				Joins("JOIN subjects ON subjects.id = paper_subjects.subject_id").
				Where("subjects.code = ?", req.SubjectCode)
		}
		if req.Author != "" {
			query = query.Joins("JOIN authors ON authors.id = papers.main_author_id").
				Where("authors.name = ?", req.Author)
		}
		if req.FromDate != "" {
			query = query.Where("publish_date >= ?", req.FromDate)
		}
		if req.UntilDate != "" {
			query = query.Where("publish_date <= ?", req.UntilDate)
		}
		if req.Limit > 0 {
			query = query.Limit(req.Limit)
		}

		var papers []models.Paper
		if err := query.Order("papers.created_at desc").Find(&papers).Error; err != nil {
			log.Error("Database query for papers failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		c.JSON(http.StatusOK, papers)
	})
}

func setupTaxonomyRoutes(router *gin.Engine, db *gorm.DB, log *zap.Logger) {
	rg := router.Group("/taxonomy")
	rg.GET("/domains", func(c *gin.Context) {
		var domains []models.Domain
		if err := db.Order("code").Find(&domains).Error; err != nil {
			log.Error("Database query for domains failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, domains)
	})
	rg.GET("/subjects", func(c *gin.Context) {
		query := db.Order("code")
		if domainCode := c.Query("domain_code"); domainCode != "" {
			query = query.Joins("JOIN domains ON domains.id = subjects.domain_id").
				Where("domains.code = ?", domainCode)
		}
		var subjects []models.Subject
		if err := query.Find(&subjects).Error; err != nil {
			log.Error("Database query for subjects failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, subjects)
	})
}

func setupIngestionStateRoutes(router *gin.Engine, stateService *services.IngestionStateService, log *zap.Logger) {
	rg := router.Group("/ingestion-states")
	rg.GET("/", func(c *gin.Context) {
		states, err := stateService.List(c.Request.Context(), c.Query("datasource"))
		if err != nil {
			log.Error("Database query for ingestion states failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, states)
	})

	// Freischalten bzw. Sperren einzelner Domains für die Paper-Ingestion
	rg.PATCH("/:id", func(c *gin.Context) {
		var req struct {
			IsActive *bool `json:"is_active" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body. 'is_active' field is required."})
			return
		}
		stateID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid state id"})
			return
		}
		if err := stateService.SetActive(c.Request.Context(), uint(stateID), *req.IsActive); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": stateID, "is_active": *req.IsActive})
	})
}

func setupHarvestRoutes(router *gin.Engine, harvestService *services.HarvestService, log *zap.Logger) {
	rg := router.Group("/harvest")

	rg.POST("/all", func(c *gin.Context) {
		go func() {
			count := harvestService.RunAll(context.Background())
			newPapersCounter.Add(float64(count))
			log.Info("Async full harvest completed", zap.Int("new_papers", count))
		}()
		c.JSON(http.StatusAccepted, gin.H{"message": "Harvest for all datasources triggered."})
	})

	rg.POST("/categories/:datasource", func(c *gin.Context) {
		kind, err := datasources.ParseKind(c.Param("datasource"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown datasource"})
			return
		}
		go func() {
			if err := harvestService.RunCategories(context.Background(), kind); err != nil {
				log.Error("Async category harvest failed", zap.String("datasource", string(kind)), zap.Error(err))
			} else {
				log.Info("Async category harvest completed", zap.String("datasource", string(kind)))
			}
		}()
		c.JSON(http.StatusAccepted, gin.H{"message": "Category harvest triggered."})
	})

	rg.POST("/papers/:datasource", func(c *gin.Context) {
		kind, err := datasources.ParseKind(c.Param("datasource"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown datasource"})
			return
		}
		go func() {
			count, err := harvestService.RunPapers(context.Background(), kind)
			newPapersCounter.Add(float64(count))
			if err != nil {
				log.Error("Async paper harvest failed", zap.String("datasource", string(kind)), zap.Error(err))
			} else {
				log.Info("Async paper harvest completed", zap.String("datasource", string(kind)), zap.Int("new_papers", count))
			}
		}()
		c.JSON(http.StatusAccepted, gin.H{"message": "Paper harvest triggered."})
	})
}
