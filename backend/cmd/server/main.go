package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"devpath/backend/internal/ai"
	"devpath/backend/internal/knowledge"
	"devpath/backend/internal/learningpath"
	"devpath/backend/internal/store"
	"devpath/backend/internal/suggest"
	"devpath/backend/internal/webmeta"
	"devpath/backend/pkg/config"
	apperrors "devpath/backend/pkg/errors"
	"devpath/backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize logger
	if err := logger.Init(cfg.Env); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting knowledge graph API server...")

	// Initialize Neo4j driver
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}
	defer driver.Close(context.Background())

	graphStore := store.New(driver)
	if !graphStore.VerifyConnection(context.Background()) {
		log.Fatal("Failed to verify Neo4j connectivity", zap.String("uri", cfg.Neo4jURI))
	}

	// Initialize dependencies
	concepts := knowledge.NewConceptRepository(graphStore)
	tracker := knowledge.NewStateTracker(graphStore)
	paths := learningpath.NewEngine(graphStore)
	suggestions := suggest.NewEngine(graphStore)
	fetcher := webmeta.NewFetcher(cfg.WebMetaTimeout)

	var aiService *ai.Service
	if cfg.OpenAIAPIKey != "" {
		aiService = ai.NewService(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ModelID)
	} else {
		log.Warn("OPENAI_API_KEY not set, analyze endpoints disabled")
	}

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		status := "ok"
		code := http.StatusOK
		if !graphStore.VerifyConnection(c.Request.Context()) {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status})
	})

	api := router.Group("/api")
	{
		// Full graph snapshot for the visualization layer
		api.GET("/graph", func(c *gin.Context) {
			data, err := concepts.GetGraphData(c.Request.Context())
			if err != nil {
				respondError(c, log, "Failed to fetch graph data", err)
				return
			}
			c.JSON(http.StatusOK, data)
		})

		api.POST("/concepts", func(c *gin.Context) {
			var concept knowledge.Concept
			if err := c.ShouldBindJSON(&concept); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			if err := concepts.AddConcept(c.Request.Context(), concept); err != nil {
				if apperrors.IsErrorType(err, apperrors.ErrorTypeValidation) {
					c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				respondError(c, log, "Failed to add concept", err)
				return
			}
			c.JSON(http.StatusCreated, gin.H{"id": concept.ID})
		})

		api.GET("/concepts/:id", func(c *gin.Context) {
			concept, err := concepts.GetConceptByID(c.Request.Context(), c.Param("id"))
			if err != nil {
				respondError(c, log, "Failed to fetch concept", err)
				return
			}
			if concept == nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "Concept not found"})
				return
			}
			c.JSON(http.StatusOK, concept)
		})

		api.GET("/concepts/:id/related", func(c *gin.Context) {
			related, err := concepts.GetRelatedConcepts(c.Request.Context(), c.Param("id"))
			if err != nil {
				respondError(c, log, "Failed to fetch related concepts", err)
				return
			}
			c.JSON(http.StatusOK, related)
		})

		api.POST("/concepts/:id/examples", func(c *gin.Context) {
			var example knowledge.CodeExample
			if err := c.ShouldBindJSON(&example); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			created, err := concepts.AddCodeExample(c.Request.Context(), c.Param("id"), example)
			if err != nil {
				respondError(c, log, "Failed to add code example", err)
				return
			}
			if created == nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "Concept not found"})
				return
			}
			c.JSON(http.StatusCreated, created)
		})

		api.POST("/concepts/:id/resources", func(c *gin.Context) {
			var resource knowledge.Resource
			if err := c.ShouldBindJSON(&resource); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			// Untitled resources get their title from the page itself
			if resource.Title == "" && resource.URL != "" {
				if meta, err := fetcher.Fetch(c.Request.Context(), resource.URL); err == nil {
					resource.Title = meta.Title
				} else {
					log.Warn("Resource metadata fetch failed", zap.String("url", resource.URL), zap.Error(err))
				}
			}

			created, err := concepts.AddResource(c.Request.Context(), c.Param("id"), resource)
			if err != nil {
				respondError(c, log, "Failed to add resource", err)
				return
			}
			if created == nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "Concept not found"})
				return
			}
			c.JSON(http.StatusCreated, created)
		})

		api.POST("/relationships", func(c *gin.Context) {
			var rel knowledge.Relationship
			if err := c.ShouldBindJSON(&rel); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			if err := concepts.AddRelationship(c.Request.Context(), rel); err != nil {
				if apperrors.IsErrorType(err, apperrors.ErrorTypeValidation) {
					c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				respondError(c, log, "Failed to add relationship", err)
				return
			}
			c.JSON(http.StatusCreated, gin.H{"status": "created"})
		})

		api.POST("/knowledge", func(c *gin.Context) {
			var k knowledge.UserKnowledge
			if err := c.ShouldBindJSON(&k); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			if err := tracker.UpdateUserKnowledge(c.Request.Context(), k); err != nil {
				respondError(c, log, "Failed to update user knowledge", err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "updated"})
		})

		api.GET("/users/:id/knowledge", func(c *gin.Context) {
			records, err := tracker.GetUserKnowledge(c.Request.Context(), c.Param("id"))
			if err != nil {
				respondError(c, log, "Failed to fetch user knowledge", err)
				return
			}
			c.JSON(http.StatusOK, records)
		})

		api.GET("/users/:id/suggestions", func(c *gin.Context) {
			count := cfg.DefaultSuggestionCount
			if raw := c.Query("count"); raw != "" {
				if _, err := fmt.Sscanf(raw, "%d", &count); err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "invalid count"})
					return
				}
			}

			result, err := suggestions.SuggestNextConcepts(c.Request.Context(), c.Param("id"), count)
			if err != nil {
				respondError(c, log, "Failed to compute suggestions", err)
				return
			}
			c.JSON(http.StatusOK, result)
		})

		api.GET("/users/:id/paths", func(c *gin.Context) {
			result, err := paths.GetUserLearningPaths(c.Request.Context(), c.Param("id"))
			if err != nil {
				respondError(c, log, "Failed to fetch learning paths", err)
				return
			}
			c.JSON(http.StatusOK, result)
		})

		api.POST("/users/:id/paths", func(c *gin.Context) {
			var req struct {
				Concepts []string `json:"concepts" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			path, err := paths.CreateLearningPath(c.Request.Context(), c.Param("id"), req.Concepts)
			if err != nil {
				if apperrors.IsErrorType(err, apperrors.ErrorTypeValidation) {
					c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				respondError(c, log, "Failed to create learning path", err)
				return
			}
			c.JSON(http.StatusCreated, path)
		})

		api.POST("/users/:id/paths/generate", func(c *gin.Context) {
			var req struct {
				GoalConceptID string `json:"goalConceptId" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			path, err := paths.GenerateLearningPath(c.Request.Context(), c.Param("id"), req.GoalConceptID)
			if err != nil {
				if apperrors.IsErrorType(err, apperrors.ErrorTypeCycle) {
					c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
					return
				}
				respondError(c, log, "Failed to generate learning path", err)
				return
			}
			if path == nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "Goal concept not found"})
				return
			}
			c.JSON(http.StatusCreated, path)
		})

		api.POST("/paths/:id/advance", func(c *gin.Context) {
			path, err := paths.AdvancePath(c.Request.Context(), c.Param("id"))
			if err != nil {
				respondError(c, log, "Failed to advance learning path", err)
				return
			}
			if path == nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "Learning path not found"})
				return
			}
			c.JSON(http.StatusOK, path)
		})

		api.PUT("/paths/:id", func(c *gin.Context) {
			var update learningpath.LearningPath
			if err := c.ShouldBindJSON(&update); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			update.ID = c.Param("id")

			path, err := paths.UpdateLearningPath(c.Request.Context(), update)
			if err != nil {
				respondError(c, log, "Failed to update learning path", err)
				return
			}
			if path == nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "Learning path not found"})
				return
			}
			c.JSON(http.StatusOK, path)
		})

		api.POST("/analyze", func(c *gin.Context) {
			if aiService == nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Code analysis is not configured"})
				return
			}

			var req struct {
				Code     string `json:"code" binding:"required"`
				Language string `json:"language" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			analysis, err := aiService.AnalyzeCode(c.Request.Context(), req.Code, req.Language)
			if err != nil {
				respondError(c, log, "Failed to analyze code", err)
				return
			}
			c.JSON(http.StatusOK, analysis)
		})
	}

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// respondError maps the error taxonomy onto HTTP statuses
func respondError(c *gin.Context, log *zap.Logger, message string, err error) {
	log.Error(message, zap.Error(err))

	switch {
	case apperrors.IsErrorType(err, apperrors.ErrorTypeConnection):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": message, "kind": "connection"})
	case apperrors.IsErrorType(err, apperrors.ErrorTypeContext):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": message, "kind": "context"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}

// corsMiddleware allows the visualization frontend to call the API directly
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
