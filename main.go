package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"

	"safesite-backend/internal/alert"
	"safesite-backend/internal/attendance"
	"safesite-backend/internal/bulletin"
	"safesite-backend/internal/department"
	"safesite-backend/internal/platform/auth"
	"safesite-backend/internal/platform/db"
	"safesite-backend/internal/reset"
	"safesite-backend/internal/schedule"
	"safesite-backend/internal/site"
)

// 退場プロンプトのプッシュ配信は外部システムの領分。ここではログに残すだけ。
type logPromptNotifier struct{}

func (logPromptNotifier) SendCheckoutPrompt(_ context.Context, r attendance.Record) error {
	log.Printf("[INFO] checkout prompt: phone=%s name=%s", r.PrincipalPhone, r.DisplayName)
	return nil
}

func main() {
	// 設定読み込み
	cfg, err := db.LoadConfig("config/config.yaml")
	if err != nil {
		panic(err)
	}

	mode := cfg.Mode
	log.Printf("[INFO] mode:%s\n", mode)

	if cfg.Mode != "dev" && cfg.Mode != "release" {
		fmt.Println("Usage: go run main.go [dev|release]")
		return
	}

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		panic(err)
	}
	defer conn.Close()

	log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)

	// サービス組み立て（グローバルは持たず、ここで一度だけ構築して注入する）
	authSvc := auth.NewService(conn, []byte(cfg.Auth.JWTSecret))
	if cfg.Auth.BootstrapID != "" && cfg.Auth.BootstrapPassword != "" {
		if err := authSvc.EnsureAdmin(context.Background(), cfg.Auth.BootstrapID, cfg.Auth.BootstrapPassword); err != nil {
			log.Fatalf("[ERROR] bootstrap admin: %v", err)
		}
	}
	revoker := auth.NewRevoker(auth.NewStore(conn))

	siteStore := site.NewStore(conn)
	attStore := attendance.NewStore(conn)
	attSvc := attendance.NewService(attStore, siteStore, logPromptNotifier{})

	deptSvc := department.NewService(department.NewStore(conn))

	bulStore := bulletin.NewStore(conn)
	bulSvc := bulletin.NewService(bulStore, bulletin.NoopTranslator{})

	alertStore := alert.NewStore(conn)

	resetSvc := reset.NewService(revoker, attStore, bulStore, alertStore)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if mode == "dev" {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	// /api/v1
	api := r.Group("/api/v1")

	worker := api.Group("", auth.RequireAuth(authSvc), auth.RequireRole(auth.RoleWorker, auth.RoleAdmin))
	admin := api.Group("", auth.RequireAuth(authSvc), auth.RequireRole(auth.RoleAdmin))

	auth.RegisterRoutes(api, admin, authSvc)
	attendance.RegisterRoutes(worker, admin, attSvc)
	bulletin.RegisterRoutes(worker, admin, bulSvc)
	alert.RegisterRoutes(worker, admin, alertStore)
	department.RegisterRoutes(admin, deptSvc)
	site.RegisterRoutes(admin, siteStore)
	reset.RegisterRoutes(admin, resetSvc)

	// スケジューラ（日次リセット1本＋スイープ3本）
	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		log.Fatalf("[ERROR] bad timezone %q: %v", cfg.Schedule.Timezone, err)
	}

	// ジョブには1実行あたりのタイムアウトを切る。バッチ単位でアトミックなので
	// 途中打ち切りでもコミット済み分は壊れない
	jobs := []schedule.Job{
		{Name: "daily-reset", At: cfg.Schedule.DailyReset, Run: func(ctx context.Context) {
			jctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			defer cancel()
			resetSvc.Run(jctx)
		}},
	}
	sweepLabels := []string{"T1", "T2", "T3"}
	for i, atTime := range cfg.Schedule.Sweeps {
		if i >= len(sweepLabels) {
			break
		}
		label := sweepLabels[i]
		atTime := atTime
		jobs = append(jobs, schedule.Job{Name: "sweep-" + label, At: atTime, Run: func(ctx context.Context) {
			jctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			defer cancel()
			if _, err := attSvc.Sweep(jctx, label); err != nil {
				log.Printf("[ERROR] scheduled sweep %s failed: %v", label, err)
			}
		}})
	}

	sched, err := schedule.New(loc, jobs)
	if err != nil {
		log.Fatalf("[ERROR] scheduler config: %v", err)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go sched.Start(rootCtx)

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: r,
	}

	go func() {
		var err error
		if cfg.Certificate.Cert != "" && cfg.Certificate.Key != "" {
			certFile := fmt.Sprintf("config/tls/%s/%s", mode, cfg.Certificate.Cert)
			keyFile := fmt.Sprintf("config/tls/%s/%s", mode, cfg.Certificate.Key)
			log.Printf("[INFO] listening on https://0.0.0.0%s", cfg.Listen)
			err = srv.ListenAndServeTLS(certFile, keyFile)
		} else {
			log.Printf("[INFO] listening on http://0.0.0.0%s", cfg.Listen)
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	<-rootCtx.Done()
	log.Println("[INFO] shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}
