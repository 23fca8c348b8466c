// Command doccheck verifies local document files from the terminal, using
// the same pipeline as the HTTP service. The result prints as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/doclab-pl/doclab/internal/app"
	"github.com/doclab-pl/doclab/internal/common"
	"github.com/doclab-pl/doclab/internal/service"
)

func main() {
	_ = godotenv.Load()

	docType := flag.String("type", "unknown", "document type key")
	citizenship := flag.String("citizenship", "", "applicant citizenship")
	pathName := flag.String("path", "", "legalization path")
	appDate := flag.String("date", "", "application date (YYYY-MM-DD)")
	ocrMode := flag.String("mode", "", "ocr mode: printed or handwriting")
	debug := flag.Bool("debug", false, "include pipeline counters")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: doccheck [flags] FILE...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := common.LoadConfig()
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	var files []service.File
	for _, name := range flag.Args() {
		data, err := os.ReadFile(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read %s: %v\n", name, err)
			os.Exit(1)
		}
		files = append(files, service.File{
			Name: filepath.Base(name),
			MIME: mime.TypeByExtension(filepath.Ext(name)),
			Data: data,
		})
	}

	out, err := a.Verifier.Verify(ctx, service.VerifyInput{
		Files:           files,
		DocType:         *docType,
		Citizenship:     *citizenship,
		Path:            *pathName,
		ApplicationDate: *appDate,
		OCRMode:         *ocrMode,
		Debug:           *debug,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "verification failed: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "encode result: %v\n", err)
		os.Exit(1)
	}
}
