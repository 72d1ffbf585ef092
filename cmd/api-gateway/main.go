package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/aladab-school-api/api/swagger"
	"github.com/noah-isme/aladab-school-api/internal/handler"
	"github.com/noah-isme/aladab-school-api/internal/middleware"
	"github.com/noah-isme/aladab-school-api/internal/models"
	"github.com/noah-isme/aladab-school-api/internal/repository"
	"github.com/noah-isme/aladab-school-api/internal/service"
	"github.com/noah-isme/aladab-school-api/pkg/cache"
	"github.com/noah-isme/aladab-school-api/pkg/config"
	"github.com/noah-isme/aladab-school-api/pkg/database"
	"github.com/noah-isme/aladab-school-api/pkg/export"
	"github.com/noah-isme/aladab-school-api/pkg/jobs"
	"github.com/noah-isme/aladab-school-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/aladab-school-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/aladab-school-api/pkg/middleware/requestid"
	"github.com/noah-isme/aladab-school-api/pkg/storage"
)

// @title Al-Adab School API
// @version 1.0.0
// @description School administration API: classes, students, timetables, results, admissions and fees
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}

	app, err := build(ctx, cfg, db, redisClient, logr)
	if err != nil {
		logr.Fatal("failed to build application", zap.Error(err))
	}
	defer app.shutdown()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

type application struct {
	router   *gin.Engine
	shutdown func()
}

func build(ctx context.Context, cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) (*application, error) {
	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	classRepo := repository.NewClassRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	resultRepo := repository.NewResultRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	financeRepo := repository.NewFinanceRepository(db)
	admissionRepo := repository.NewAdmissionRepository(db)
	academicRepo := repository.NewAcademicRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.School.Name,
	})
	userSvc := service.NewUserService(userRepo, profileRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(userSvc, studentRepo, cfg.School.StudentEmailDomain, metricsSvc.ObserveWorkflow, logr)
	staffSvc := service.NewStaffService(userSvc, profileRepo, metricsSvc.ObserveWorkflow, validate, logr)
	classSvc := service.NewClassService(classRepo, profileRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, enrollmentSvc, userSvc, cfg.School.AdmissionPrefix, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, metricsSvc.ObserveWorkflow, validate, logr).WithCache(cacheSvc)
	timetableSvc := service.NewTimetableService(timetableRepo, classRepo, subjectRepo, cacheSvc, userRepo, service.GridConfigFrom(cfg.Timetable), validate, logr)
	resultSvc := service.NewResultService(resultRepo, studentRepo, classRepo, subjectRepo, studentRepo, userRepo, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, classRepo, validate, logr)
	financeSvc := service.NewFinanceService(financeRepo, classRepo, studentRepo, studentRepo, validate, logr)
	admissionSvc := service.NewAdmissionService(admissionRepo, enrollmentSvc, userRepo, metricsSvc.ObserveWorkflow, cfg.School.AdmissionPrefix, validate, logr)
	academicSvc := service.NewAcademicPeriodService(academicRepo, cacheSvc, userRepo, logr)

	stopQueue := func() {}
	exportHandler := handler.NewExportHandler(nil)
	if cfg.Exports.Enabled {
		files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			return nil, err
		}
		exporter := service.NewExportService(resultSvc, financeSvc, files, cfg.School.Name, logr, map[models.ExportFormat]export.Renderer{
			models.ExportFormatCSV: export.NewCSVExporter(),
			models.ExportFormatPDF: export.NewPDFExporter(true),
		})
		worker := service.NewExportWorker(exportJobRepo, exporter, logr).WithObserver(metricsSvc.ObserveExport)
		queue := jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
			OnGiveUp:   worker.GiveUp,
		})
		queue.Start(ctx)
		stopQueue = queue.Stop

		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc := service.NewExportJobService(exportJobRepo, queue, exporter, signer, service.ExportJobConfig{
			APIPrefix:       cfg.APIPrefix,
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
		}, validate, logr)
		exportSvc.RecoverPendingJobs(ctx)
		exportSvc.StartCleanup(ctx)
		exportHandler = handler.NewExportHandler(exportSvc)
	}

	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	h := handlers{
		auth:       handler.NewAuthHandler(authSvc),
		users:      handler.NewUserHandler(userSvc),
		staff:      handler.NewStaffHandler(staffSvc),
		classes:    handler.NewClassHandler(classSvc, studentSvc),
		students:   handler.NewStudentHandler(studentSvc),
		subjects:   handler.NewSubjectHandler(subjectSvc),
		timetable:  handler.NewTimetableHandler(timetableSvc),
		results:    handler.NewResultHandler(resultSvc),
		attendance: handler.NewAttendanceHandler(attendanceSvc),
		finance:    handler.NewFinanceHandler(financeSvc),
		admissions: handler.NewAdmissionHandler(admissionSvc),
		academic:   handler.NewAcademicHandler(academicSvc),
		exports:    exportHandler,
		metrics:    handler.NewMetricsHandler(metricsSvc, checks),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), h, authSvc, academicSvc, userRepo)

	return &application{router: r, shutdown: stopQueue}, nil
}

type handlers struct {
	auth       *handler.AuthHandler
	users      *handler.UserHandler
	staff      *handler.StaffHandler
	classes    *handler.ClassHandler
	students   *handler.StudentHandler
	subjects   *handler.SubjectHandler
	timetable  *handler.TimetableHandler
	results    *handler.ResultHandler
	attendance *handler.AttendanceHandler
	finance    *handler.FinanceHandler
	admissions *handler.AdmissionHandler
	academic   *handler.AcademicHandler
	exports    *handler.ExportHandler
	metrics    *handler.MetricsHandler
}

func registerRoutes(api *gin.RouterGroup, h handlers, authSvc *service.AuthService, academicSvc *service.AcademicPeriodService, auditRepo *repository.UserRepository) {
	management := middleware.RequireRoles(models.RoleAdmin, models.RolePrincipal)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	staffOnly := middleware.RequireRoles(models.RoleAdmin, models.RolePrincipal, models.RoleTeacher)

	api.POST("/auth/login", h.auth.Login)
	api.POST("/auth/refresh", h.auth.Refresh)
	api.POST("/admissions", h.admissions.Submit)
	api.GET("/exports/download/:token", h.exports.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(authSvc), middleware.AcademicPeriod(academicSvc))

	secured.POST("/auth/logout", h.auth.Logout)
	secured.POST("/auth/change-password", h.auth.ChangePassword)
	secured.GET("/auth/me", h.auth.Me)

	secured.GET("/academic/period", h.academic.Current)
	secured.PUT("/academic/period", adminOnly, h.academic.Update)

	profiles := secured.Group("/profiles")
	profiles.GET("/me", h.users.Me)
	profiles.PUT("/me", h.users.UpdateMe)
	profiles.GET("", management, h.users.List)
	profiles.GET("/:id", middleware.RolesOrSelf("id", models.RoleAdmin, models.RolePrincipal), h.users.Get)
	profiles.PUT("/:id", adminOnly, h.users.Update)

	staff := secured.Group("/staff", management)
	staff.GET("", h.staff.List)
	staff.GET("/:id", h.staff.Get)
	staff.POST("", adminOnly, h.staff.Create)
	staff.PUT("/:id", adminOnly, h.staff.Update)
	staff.DELETE("/:id", adminOnly, middleware.Audit(auditRepo, models.AuditActionRecordDelete, "staff"), h.staff.Delete)

	classes := secured.Group("/classes")
	classes.GET("", staffOnly, h.classes.List)
	classes.GET("/:id", staffOnly, h.classes.Get)
	classes.POST("", adminOnly, h.classes.Create)
	classes.PUT("/:id", adminOnly, h.classes.Update)
	classes.DELETE("/:id", adminOnly, middleware.Audit(auditRepo, models.AuditActionRecordDelete, "classes"), h.classes.Delete)
	classes.PUT("/:id/teachers", adminOnly, h.classes.AssignTeachers)
	classes.GET("/:id/students", staffOnly, h.classes.Roster)
	classes.GET("/:id/timetable", h.timetable.Get)
	classes.PATCH("/:id/timetable", management, h.timetable.Edit)
	classes.PUT("/:id/timetable", management, h.timetable.Save)
	classes.POST("/:id/timetable/regenerate", management, h.timetable.Regenerate)
	classes.GET("/:id/attendance", staffOnly, h.attendance.Register)
	classes.POST("/:id/attendance", staffOnly, h.attendance.Mark)
	classes.GET("/:id/statement", management, h.finance.ClassStatement)

	students := secured.Group("/students")
	students.GET("", staffOnly, h.students.List)
	students.GET("/:id", staffOnly, h.students.Get)
	students.POST("", adminOnly, h.students.Create)
	students.POST("/import", adminOnly, middleware.Audit(auditRepo, models.AuditActionStudentImport, "students"), h.students.Import)
	students.PUT("/:id", adminOnly, h.students.Update)
	students.PUT("/:id/class", adminOnly, h.students.Reassign)
	students.DELETE("/:id", adminOnly, middleware.Audit(auditRepo, models.AuditActionRecordDelete, "students"), h.students.Delete)
	students.GET("/:id/report-card", staffOnly, h.results.ReportCard)
	students.GET("/:id/attendance", staffOnly, h.attendance.Summary)
	students.GET("/:id/payments", management, h.finance.StudentPayments)
	students.GET("/:id/balance", management, h.finance.StudentBalance)

	subjects := secured.Group("/subjects")
	subjects.GET("", h.subjects.List)
	subjects.GET("/:id", h.subjects.Get)
	subjects.POST("", adminOnly, h.subjects.Create)
	subjects.PUT("/:id", adminOnly, h.subjects.Update)
	subjects.DELETE("/groups", adminOnly, middleware.Audit(auditRepo, models.AuditActionRecordDelete, "subjects"), h.subjects.DeleteGroup)
	subjects.DELETE("/:id", adminOnly, middleware.Audit(auditRepo, models.AuditActionRecordDelete, "subjects"), h.subjects.DeleteVariant)

	results := secured.Group("/results/broadsheet", staffOnly)
	results.GET("/:classId/:subjectId", h.results.Broadsheet)
	results.POST("/:classId/:subjectId", h.results.Save)
	results.POST("/:classId/:subjectId/preview", h.results.Preview)

	admissions := secured.Group("/admissions", management)
	admissions.GET("", h.admissions.List)
	admissions.GET("/:id", h.admissions.Get)
	admissions.POST("/:id/approve", h.admissions.Approve)
	admissions.POST("/:id/reject", h.admissions.Reject)

	finance := secured.Group("/finance", management)
	finance.GET("/fees", h.finance.ListFees)
	finance.PUT("/fees", h.finance.UpsertFee)
	finance.POST("/payments", h.finance.RecordPayment)
	finance.DELETE("/payments/:id", adminOnly, h.finance.DeletePayment)

	exports := secured.Group("/exports", staffOnly)
	exports.POST("", h.exports.Create)
	exports.GET("/:id", h.exports.Status)
}
