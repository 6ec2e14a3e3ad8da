package main

import (
	"context"
	"errors"
	"fms/src/apperror"
	"fms/src/boot"
	"fms/src/config"
	"fms/src/lib"
	"fms/src/middlewares"
	"fms/src/types"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path"
	"regexp"
	"syscall"
	"time"

	"github.com/covalenthq/lumberjack"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	apiPrefix      = "/api/v1"
	requestTimeout = 30 * time.Second
)

var futureDateValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return date.After(time.Now())
}

func registerValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("futuredate", futureDateValidatorFunc)
	}
}

// respondError renders any failure as {"error": {"code", "message"}}.
func respondError(ctx *gin.Context, err error) {
	e := apperror.From(err)
	status := apperror.HTTPStatus(e.Kind)
	if status >= http.StatusInternalServerError {
		log.Printf("[API] %s %s: %s\n", ctx.Request.Method, ctx.FullPath(), err.Error())
	}
	ctx.AbortWithStatusJSON(status, gin.H{"error": e})
}

func respondBindError(ctx *gin.Context, err error) {
	respondError(ctx, apperror.Wrap(err, apperror.Validation, apperror.CodeInvalidRequest, err.Error()))
}

func setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middlewares.SecureHeaders)
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	return router
}

func corsMiddleware(cfg config.ServerConfig) gin.HandlerFunc {
	if cfg.Env == types.Local {
		return cors.Default()
	}
	cc := cors.DefaultConfig()
	cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "PATCH", "PUT", "DELETE", "HEAD")
	cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization")
	cc.AllowOriginFunc = func(origin string) bool {
		if cfg.AppHost == "" {
			return false
		}
		match, _ := regexp.MatchString(cfg.AppHost, origin)
		return match
	}
	cc.AllowCredentials = true
	cc.AllowAllOrigins = false
	return cors.New(cc)
}

func maintenanceModeMiddleware(g *gin.Engine, enabled bool) *gin.Engine {
	g.Use(func(ctx *gin.Context) {
		if enabled {
			err := errors.New("server is under maintenance")
			log.Println(err.Error())
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": gin.H{"code": "Maintenance", "message": err.Error()}})
			return
		}
	})
	return g
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	apiv1 := g.Group(apiPrefix)
	return apiv1
}

// authMiddleware picks the token verifier configured for this deployment.
func authMiddleware(ctx context.Context, cfg *config.Config) (gin.HandlerFunc, error) {
	switch cfg.Auth.Provider {
	case "firebase":
		client, err := lib.GetFirebaseAuth(ctx, cfg.Firebase)
		if err != nil {
			return nil, err
		}
		return middlewares.VerifyIdToken(client), nil
	default:
		if cfg.Auth.JWTSecret == "" {
			return nil, errors.New("JWT_SECRET is not set")
		}
		return middlewares.AuthMiddleware(cfg.Auth.JWTSecret), nil
	}
}

func newServer(app *boot.App, auth gin.HandlerFunc) *gin.Engine {
	registerValidations()
	router := setupRouter()
	router.Use(corsMiddleware(app.Config.Server))
	router = maintenanceModeMiddleware(router, app.Config.Server.Maintenance)

	callbackHandlers(apiv1Group(router), app)

	authorized := apiv1Group(router)
	authorized.Use(middlewares.Timeout(requestTimeout), auth)
	{
		orderHandlers(authorized, app)
		busHandlers(authorized, app)
		parkingHandlers(authorized, app)
		facilityHandlers(authorized, app)
		paymentHandlers(authorized, app)
		adminHandlers(authorized.Group("/admin"), app)
	}
	return router
}

func initLogger(dir string) {
	cwd, _ := os.Getwd()
	logDir := path.Join(cwd, dir)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		log.Printf("Could not create log directory: %s\n", err.Error())
		return
	}
	serverLogs := path.Join(logDir, "server.log")
	apiLogs := path.Join(logDir, "api.log")
	gin.ForceConsoleColor()

	f, err := os.Create(apiLogs)
	if err == nil {
		gin.DefaultWriter = io.MultiWriter(f, os.Stdout)
	}
	log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   serverLogs,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	}))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Error loading config: %s\n", err.Error())
	}
	initLogger(cfg.Server.LogDir)

	st, err := boot.InitStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Error initializing store: %s\n", err.Error())
	}
	app, err := boot.InitApp(ctx, cfg, st)
	if err != nil {
		log.Fatalf("Error initializing services: %s\n", err.Error())
	}
	defer app.Close()

	go boot.InitBroker(ctx, cfg.Kafka)
	if err := boot.InitScheduler(app); err != nil {
		log.Printf("Error initializing scheduler: %s\n", err.Error())
	}
	defer boot.StopScheduler()

	auth, err := authMiddleware(ctx, cfg)
	if err != nil {
		log.Fatalf("Error initializing auth: %s\n", err.Error())
	}
	router := newServer(app, auth)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Listening on %s\n", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %s\n", err.Error())
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %s\n", err.Error())
	}
}
