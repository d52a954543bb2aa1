package main

import (
	"captchasolver/internal/api"
	"captchasolver/internal/captcha"
	"captchasolver/internal/config"
	"captchasolver/internal/inference"
	"captchasolver/internal/solver"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode (default to release mode)
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Load both models once; a failed load leaves that type unavailable
	log.Println("Loading CAPTCHA solver models...")
	models := inference.LoadONNX(cfg.OnnxRuntimeLib, map[captcha.Type]string{
		captcha.TypeText: cfg.TextModelPath,
		captcha.TypeMath: cfg.MathModelPath,
	})
	defer func() {
		if err := models.Close(); err != nil {
			log.Printf("Error releasing models: %v", err)
		}
	}()

	r := gin.Default()
	r.MaxMultipartMemory = cfg.MaxUploadBytes

	// Add CORS middleware for browser clients
	r.Use(corsMiddleware())

	// Register routes
	handler := api.NewHandler(solver.New(models), models, cfg.WebDir, cfg.MaxUploadBytes)
	api.RegisterRoutes(r, handler)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("CAPTCHA solver running on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

// corsMiddleware allows any origin, method and header
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			origin = "*"
		}
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Add("Vary", "Origin")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")

		headers := c.GetHeader("Access-Control-Request-Headers")
		if headers == "" {
			headers = "*"
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", headers)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS, HEAD")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
