package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"lecture-admin/ai"
	"lecture-admin/ai/gemini"
	aopenai "lecture-admin/ai/openai"
	"lecture-admin/config"
	"lecture-admin/models"
	"lecture-admin/services"
	"lecture-admin/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	jobsEnqueuedCounter prometheus.Counter
	jobsClaimedCounter  prometheus.Counter
	mergesCounter       prometheus.Counter
	restoresCounter     prometheus.Counter
)

func init() {
	jobsEnqueuedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "upload_jobs_enqueued_total",
		Help: "Total number of upload jobs enqueued.",
	})
	jobsClaimedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "upload_jobs_claimed_total",
		Help: "Total number of upload jobs handed to the worker.",
	})
	mergesCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "entity_merges_total",
		Help: "Total number of entity merges performed (manual and replayed).",
	})
	restoresCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "entity_restores_total",
		Help: "Total number of entities restored from backup.",
	})
	prometheus.MustRegister(jobsEnqueuedCounter, jobsClaimedCounter, mergesCounter, restoresCounter)
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

// serviceError mappt die Fehler-Taxonomie der Services auf HTTP-Status.
func serviceError(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Error("Interner Fehler", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
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

	// Setup Database Connection
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to catalog database.")

	logging.Info("Running database auto-migration...")
	if err := db.AutoMigrate(models.All()...); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}

	// Setup Blob-Store
	blobs, err := storage.NewR2(cfg)
	if err != nil {
		logging.Fatal("R2 client creation failed", zap.Error(err))
	}

	// Setup KI-Provider (optional, ohne Key laufen nur die AI-Routen nicht)
	var completer ai.Completer
	switch cfg.AIProvider {
	case "gemini":
		completer, err = gemini.NewClient(context.Background(), cfg, logging)
	case "openai":
		completer, err = aopenai.NewClient(cfg, logging)
	case "none":
		err = nil
	default:
		logging.Fatal("Unknown AI provider", zap.String("provider", cfg.AIProvider))
	}
	if err != nil {
		logging.Warn("AI provider unavailable, metadata routes disabled", zap.Error(err))
		completer = nil
	}

	// Setup Services
	queue := services.NewJobQueue(db, logging)
	history := services.NewHistoryService(db, logging)
	merger := services.NewMergeService(db, blobs, logging)
	detector := services.NewDuplicateDetector(db, blobs, logging, history, merger, cfg.SimilarityThreshold)
	restorer := services.NewRestoreService(db, blobs, logging)
	entities := services.NewEntityService(db, logging)

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Setup Routes
	setupJobRoutes(router, queue, logging)
	setupDuplicateRoutes(router, detector, merger, logging)
	setupHistoryRoutes(router, history, logging)
	setupEntityRoutes(router, entities, restorer, blobs, logging)
	setupCourseRoutes(router, db, blobs, logging)
	if completer != nil {
		metadata := services.NewMetadataService(completer, logging)
		setupAIRoutes(router, metadata, logging)
		logging.Info("AI routes enabled", zap.String("provider", completer.Name()))
	}

	// Setup Cron: genehmigte Duplikat-Entscheidungen nachspielen
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.CronSchedule, func() {
		logging.Info("Running scheduled duplicate auto-resolve...")
		result, err := detector.Detect(context.Background())
		if err != nil {
			logging.Error("Scheduled duplicate detection failed", zap.Error(err))
			return
		}
		mergesCounter.Add(float64(len(result.AutoMerged)))
		logging.Info("Scheduled duplicate auto-resolve completed",
			zap.Int("auto_merged", len(result.AutoMerged)),
			zap.Int("exact_open", len(result.Exact)),
			zap.Int("similar_open", len(result.Similar)))
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

func setupJobRoutes(router *gin.Engine, queue *services.JobQueue, log *zap.Logger) {
	rg := router.Group("/jobs")

	// POST - Job einreihen; Conflict bei bestehendem nicht-failed Job
	rg.POST("/", func(c *gin.Context) {
		var req struct {
			CourseID      uint `json:"course_id" binding:"required"`
			LectureNumber int  `json:"lecture_number" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		job, err := queue.Enqueue(c.Request.Context(), req.CourseID, req.LectureNumber)
		if err != nil {
			serviceError(c, log, err)
			return
		}
		jobsEnqueuedCounter.Inc()
		c.JSON(http.StatusCreated, job)
	})

	// POST - Claim-Endpoint für den externen Worker-Daemon
	rg.POST("/claim", func(c *gin.Context) {
		job, err := queue.ClaimNext(c.Request.Context())
		if err != nil {
			serviceError(c, log, err)
			return
		}
		if job == nil {
			c.JSON(http.StatusOK, gin.H{"job": nil})
			return
		}
		jobsClaimedCounter.Inc()
		c.JSON(http.StatusOK, gin.H{"job": job})
	})

	// POST - Ergebnis-Meldung des Workers
	rg.POST("/:id/complete", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var req struct {
			Succeeded *bool  `json:"succeeded" binding:"required"`
			Output    string `json:"output"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body (succeeded required)"})
			return
		}
		if err := queue.Complete(c.Request.Context(), id, *req.Succeeded, req.Output); err != nil {
			serviceError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "completed"})
	})

	// DELETE - Abbrechen (pending → gelöscht, running → erzwungenes failed)
	rg.DELETE("/:id", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		outcome, err := queue.Cancel(c.Request.Context(), id)
		if err != nil {
			serviceError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": outcome})
	})

	// GET - Alle Jobs mit Status-Abgleich gegen den Katalog
	rg.GET("/", func(c *gin.Context) {
		jobs, err := queue.List(c.Request.Context())
		if err != nil {
			serviceError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, jobs)
	})
}

func setupDuplicateRoutes(router *gin.Engine, detector *services.DuplicateDetector, merger *services.MergeService, log *zap.Logger) {
	rg := router.Group("/duplicates")

	// GET - Frischer Detektor-Lauf inkl. Verlauf-Filter und Auto-Replay
	rg.GET("/", func(c *gin.Context) {
		result, err := detector.Detect(c.Request.Context())
		if err != nil {
			serviceError(c, log, err)
			return
		}
		mergesCounter.Add(float64(len(result.AutoMerged)))
		c.JSON(http.StatusOK, result)
	})

	// POST - Manueller Merge einer Keep/Delete-Entscheidung
	rg.POST("/merge", func(c *gin.Context) {
		var req struct {
			KeepID     uint   `json:"keep_id" binding:"required"`
			KeepType   string `json:"keep_type" binding:"required"`
			DeleteID   uint   `json:"delete_id" binding:"required"`
			DeleteType string `json:"delete_type" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := merger.Merge(c.Request.Context(), req.KeepID, req.KeepType, req.DeleteID, req.DeleteType); err != nil {
			serviceError(c, log, err)
			return
		}
		mergesCounter.Inc()
		c.JSON(http.StatusOK, gin.H{"message": "merged"})
	})
}

func setupHistoryRoutes(router *gin.Engine, history *services.HistoryService, log *zap.Logger) {
	rg := router.Group("/merge-history")

	rg.POST("/", func(c *gin.Context) {
		var req struct {
			GroupSig string `json:"group_sig" binding:"required"`
			Action   string `json:"action" binding:"required"`
			KeepType string `json:"keep_type"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := history.Record(c.Request.Context(), req.GroupSig, req.Action, req.KeepType); err != nil {
			serviceError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "recorded"})
	})

	rg.GET("/", func(c *gin.Context) {
		entries, err := history.List(c.Request.Context())
		if err != nil {
			serviceError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, entries)
	})

	rg.DELETE("/", func(c *gin.Context) {
		if err := history.Reset(c.Request.Context()); err != nil {
			serviceError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "history reset"})
	})
}

func setupEntityRoutes(router *gin.Engine, entities *services.EntityService, restorer *services.RestoreService, blobs storage.Blobs, log *zap.Logger) {
	rg := router.Group("/entities")

	rg.GET("/:type", func(c *gin.Context) {
		records, err := entities.List(c.Request.Context(), c.Param("type"))
		if err != nil {
			serviceError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, records)
	})

	rg.POST("/:type", func(c *gin.Context) {
		var req struct {
			Name        string `json:"name" binding:"required"`
			HebrewName  string `json:"hebrew_name"`
			Description string `json:"description"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body (name required)"})
			return
		}
		record, err := entities.Create(c.Request.Context(), c.Param("type"), req.Name, req.HebrewName, req.Description)
		if err != nil {
			serviceError(c, log, err)
			return
		}
		c.JSON(http.StatusCreated, record)
	})

	rg.GET("/:type/:id", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		record, err := entities.Get(c.Request.Context(), c.Param("type"), id)
		if err != nil {
			serviceError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, record)
	})

	// PATCH - Nur die mitgesendeten Felder aktualisieren
	rg.PATCH("/:type/:id", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var fields map[string]interface{}
		if err := c.ShouldBindJSON(&fields); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		record, err := entities.Patch(c.Request.Context(), c.Param("type"), id, fields)
		if err != nil {
			serviceError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, record)
	})

	// GET - Entity-Bild direkt aus dem Bucket ausliefern
	rg.GET("/:type/:id/image", func(c *gin.Context) {
		t, ok := models.TypeByName(c.Param("type"))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown entity type"})
			return
		}
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		key := t.ImageKey(id)
		exists, err := blobs.Exists(c.Request.Context(), key)
		if err != nil {
			log.Error("Image lookup failed", zap.String("key", key), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "image lookup failed"})
			return
		}
		if !exists {
			c.JSON(http.StatusNotFound, gin.H{"error": "no image for this entity"})
			return
		}
		data, err := blobs.Get(c.Request.Context(), key)
		if err != nil {
			log.Error("Image download failed", zap.String("key", key), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "image download failed"})
			return
		}
		c.Data(http.StatusOK, "image/jpeg", data)
	})

	// PUT - Entity-Bild hochladen (roher JPEG-Body)
	rg.PUT("/:type/:id/image", func(c *gin.Context) {
		t, ok := models.TypeByName(c.Param("type"))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown entity type"})
			return
		}
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		if _, err := entities.Get(c.Request.Context(), t.Name, id); err != nil {
			serviceError(c, log, err)
			return
		}
		data, err := c.GetRawData()
		if err != nil || len(data) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image body required"})
			return
		}
		key := t.ImageKey(id)
		if err := blobs.Upload(c.Request.Context(), key, data); err != nil {
			log.Error("Image upload failed", zap.String("key", key), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "image upload failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "image stored", "key": key})
	})

	// DELETE - Soft-Delete mit Backup in deleted_entities
	rg.DELETE("/:type/:id", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		backup, err := restorer.SoftDelete(c.Request.Context(), c.Param("type"), id)
		if err != nil {
			serviceError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "deleted", "backup_id": backup.ID})
	})

	dg := router.Group("/deleted-entities")

	dg.GET("/", func(c *gin.Context) {
		backups, err := restorer.ListDeleted(c.Request.Context())
		if err != nil {
			serviceError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, backups)
	})

	dg.POST("/:id/restore", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		newID, err := restorer.Restore(c.Request.Context(), id)
		if err != nil {
			serviceError(c, log, err)
			return
		}
		restoresCounter.Inc()
		c.JSON(http.StatusOK, gin.H{"message": "restored", "new_id": newID})
	})
}

func setupCourseRoutes(router *gin.Engine, db *gorm.DB, blobs storage.Blobs, log *zap.Logger) {
	rg := router.Group("/courses")

	rg.POST("/", func(c *gin.Context) {
		var course models.Course
		if err := c.ShouldBindJSON(&course); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if course.R2Dir == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "r2_dir required"})
			return
		}
		// Duplikat-Check auf das Kurs-Verzeichnis vor dem Insert
		var count int64
		if err := db.Model(&models.Course{}).Where("r2_dir = ?", course.R2Dir).Count(&count).Error; err != nil {
			serviceError(c, log, err)
			return
		}
		if count > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "a course with this r2_dir already exists"})
			return
		}
		if err := db.Create(&course).Error; err != nil {
			log.Error("Failed to create course", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create course"})
			return
		}
		c.JSON(http.StatusCreated, course)
	})

	rg.GET("/", func(c *gin.Context) {
		var courses []models.Course
		if err := db.Find(&courses).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, courses)
	})

	rg.POST("/:id/lectures", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var lecture models.Lecture
		if err := c.ShouldBindJSON(&lecture); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		lecture.CourseID = id
		if lecture.LectureNumber <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "lecture_number required"})
			return
		}
		if err := db.Create(&lecture).Error; err != nil {
			log.Error("Failed to create lecture", zap.Uint("course_id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create lecture"})
			return
		}
		c.JSON(http.StatusCreated, lecture)
	})

	rg.GET("/:id/lectures", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var lectures []models.Lecture
		if err := db.Where("course_id = ?", id).Order("lecture_number asc").Find(&lectures).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, lectures)
	})

	// GET - Audio-Dateien eines Kurses im Bucket auflisten
	rg.GET("/:id/files", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var course models.Course
		if err := db.First(&course, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		keys, err := blobs.ListKeysByPrefix(c.Request.Context(), course.R2Dir)
		if err != nil {
			log.Error("Bucket listing failed", zap.String("prefix", course.R2Dir), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "bucket listing failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"r2_dir": course.R2Dir, "files": keys})
	})

	// GET - Kurs-Verzeichnisse im Bucket-Root, als Vorschlagsliste beim
	// Anlegen eines Kurses
	router.GET("/storage/dirs", func(c *gin.Context) {
		dirs, err := blobs.ListPrefixesByDelimiter(c.Request.Context(), "")
		if err != nil {
			log.Error("Bucket listing failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "bucket listing failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"dirs": dirs})
	})
}

func setupAIRoutes(router *gin.Engine, metadata *services.MetadataService, log *zap.Logger) {
	rg := router.Group("/ai")

	// POST - Katalog-Beschreibung generieren
	rg.POST("/describe", func(c *gin.Context) {
		var req struct {
			Type string `json:"type" binding:"required"`
			Name string `json:"name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body (type and name required)"})
			return
		}
		description, err := metadata.GenerateDescription(c.Request.Context(), req.Type, req.Name)
		if err != nil {
			if errors.Is(err, services.ErrValidation) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			// Upstream-Fehler mit roher Meldung durchreichen
			log.Error("Description generation failed", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"description": description})
	})

	// POST - Entities aus einem Transkript extrahieren
	rg.POST("/extract-entities", func(c *gin.Context) {
		var req struct {
			Text string `json:"text" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body (text required)"})
			return
		}
		entities, err := metadata.ExtractEntities(c.Request.Context(), req.Text)
		if err != nil {
			if errors.Is(err, services.ErrValidation) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			log.Error("Entity extraction failed", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"entities": entities})
	})
}
