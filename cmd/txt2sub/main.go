package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/op/go-logging"

	"github.com/xiaohuirong/txt2sub/internal/httpapi"
	"github.com/xiaohuirong/txt2sub/internal/logger"
)

func main() {
	// Optional .env next to the binary; flags still win over environment.
	_ = godotenv.Load()

	listen := flag.String("listen", envOr("TXT2SUB_LISTEN", "127.0.0.1:3000"), "HTTP 监听地址")
	file := flag.String("file", os.Getenv("TXT2SUB_FILE"), "链接列表文件路径（每行一条，# 和 // 为注释）")
	templatePath := flag.String("template", os.Getenv("TXT2SUB_TEMPLATE"), "Clash 模板文件路径（可选）")
	token := flag.String("token", os.Getenv("TXT2SUB_TOKEN"), "订阅路径 token（留空则随机生成）")
	readHeaderTimeout := flag.Duration("read-header-timeout", 5*time.Second, "HTTP ReadHeaderTimeout（请求头读取超时）")
	shutdownTimeout := flag.Duration("shutdown-timeout", 10*time.Second, "收到退出信号后的优雅退出等待时间")
	verbose := flag.Bool("verbose", false, "输出 debug 日志")
	healthcheck := flag.Bool("healthcheck", false, "探测 /healthz 后退出（容器 HEALTHCHECK 用）")
	flag.Parse()

	level := logging.INFO
	if *verbose {
		level = logging.DEBUG
	}
	logger.InitLogger(level)

	if *healthcheck {
		url, err := deriveHealthzURL(*listen)
		if err != nil {
			logger.Errorf("healthcheck: %v", err)
			os.Exit(1)
		}
		if err := runHealthcheck(url, 3*time.Second); err != nil {
			logger.Errorf("healthcheck: %v", err)
			os.Exit(1)
		}
		return
	}

	if strings.TrimSpace(*file) == "" {
		logger.Error("缺少 -file 参数（或 TXT2SUB_FILE 环境变量）")
		os.Exit(1)
	}
	// Early feedback for the operator; the file is re-read per request.
	if _, err := os.Stat(*file); err != nil {
		logger.Errorf("链接列表文件不可用: %v", err)
		os.Exit(1)
	}
	if *templatePath != "" {
		if _, err := os.Stat(*templatePath); err != nil {
			logger.Errorf("模板文件不可用: %v", err)
			os.Exit(1)
		}
	}

	subToken := strings.TrimSpace(*token)
	if subToken == "" {
		subToken = uuid.NewString()
	}

	srv := &http.Server{
		Addr: *listen,
		Handler: httpapi.NewHandler(httpapi.Options{
			Token:        subToken,
			SourcePath:   *file,
			TemplatePath: *templatePath,
		}),
		ReadHeaderTimeout: *readHeaderTimeout,
	}

	logger.Infof("listening on http://%s", *listen)
	logger.Infof("subscription link: %s", subscriptionURL(*listen, subToken))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")

		shCtx, cancel := context.WithTimeout(context.Background(), *shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			logger.Errorf("graceful shutdown failed: %v", err)
			_ = srv.Close()
		}

		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("server: %v", err)
			os.Exit(1)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("server: %v", err)
			os.Exit(1)
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// subscriptionURL renders a copy-pastable link for the operator. A wildcard
// listen address is rewritten to loopback for display.
func subscriptionURL(listen, token string) string {
	base, err := deriveBaseURL(listen)
	if err != nil {
		return "/" + token
	}
	return base + "/" + token
}

func deriveHealthzURL(listen string) (string, error) {
	base, err := deriveBaseURL(listen)
	if err != nil {
		return "", err
	}
	return base + "/healthz", nil
}

func deriveBaseURL(listen string) (string, error) {
	s := strings.TrimSpace(listen)
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimSuffix(s, "/")
	if s == "" {
		return "", errors.New("empty listen address")
	}
	if !strings.Contains(s, ":") {
		// Bare port form.
		s = "127.0.0.1:" + s
	}
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return "", err
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port), nil
}

func runHealthcheck(url string, timeout time.Duration) error {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}
