// Command scanner runs the attendance desk: it reads badges from the
// camera, reports them to the school server and serves the desk display.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"asistenciaqr/internal/api"
	"asistenciaqr/internal/attendance"
	"asistenciaqr/internal/camera"
	"asistenciaqr/internal/certs"
	"asistenciaqr/internal/config"
	"asistenciaqr/internal/files"
	"asistenciaqr/internal/kiosk"
	"asistenciaqr/internal/qr"
	"asistenciaqr/internal/scan"
	"asistenciaqr/internal/utils"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to config.json")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	log, err := utils.NewLogger(cfg.LogFile, utils.ParseLevel(cfg.LogLevel))
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	defer log.Close()

	if err := run(cfg, log); err != nil {
		log.Error("scanner stopped", utils.Fields{"err": err})
		os.Exit(1)
	}
}

func run(cfg config.Config, base *utils.Logger) error {
	station := utils.StationID()
	log := base.With(utils.Fields{"station": station})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	defer close(done)
	go base.RotateLog(done)

	opts := []api.Option{api.WithTimeout(cfg.HTTPTimeout), api.WithLogger(log)}
	if cfg.CADir != "" {
		tlsCfg, expired, err := certs.NewCertManager(cfg.CADir).TLSConfig()
		if err != nil {
			return errors.Wrap(err, "load CA certificates")
		}
		for _, subject := range expired {
			log.Warn("skipping expired CA certificate", utils.Fields{"subject": subject})
		}
		opts = append(opts, api.WithTLSConfig(tlsCfg))
	}
	client, err := api.New(cfg.Server, opts...)
	if err != nil {
		return err
	}
	if cfg.Email != "" {
		if err := client.Login(ctx, cfg.Email, cfg.Password); err != nil {
			return errors.Wrap(err, "login")
		}
		log.Info("logged in", utils.Fields{"server": cfg.Server, "email": cfg.Email})
	} else {
		log.Warn("no staff credentials configured, the server may reject requests")
	}

	journal, err := files.OpenJournal(cfg.JournalPath)
	if err != nil {
		return errors.Wrap(err, "open scan journal")
	}

	roster := &attendance.Roster{}
	svc := attendance.NewService(client, roster, log)
	hub := kiosk.NewHub(cfg.KioskOrigin, log)

	open, err := cameraOpener(cfg, log)
	if err != nil {
		return err
	}
	scanner := scan.New(scan.Options{
		Open:         open,
		Decoder:      qr.NewDecoder(),
		Reporter:     client,
		Display:      hub,
		Roster:       roster,
		FPS:          cfg.ScanFPS,
		MaxDimension: cfg.ScanMaxDimension,
		Debounce:     cfg.ScanDebounce,
		Log:          log,
	})

	server := kiosk.NewServer(kiosk.Options{
		Hub:       hub,
		Service:   svc,
		Scanner:   scanner,
		Journal:   journal,
		Station:   station,
		Origin:    cfg.KioskOrigin,
		CameraURL: cfg.CameraURL,
		Log:       log,
	})
	scanner.OnDetect(server.HandleEvent)

	srv := &http.Server{
		Addr:              cfg.KioskAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info("desk display listening", utils.Fields{"addr": cfg.KioskAddr, "journal": journal.Path()})
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		scanner.Stop()
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	scanner.Stop()
	scanner.Wait()
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}

// cameraOpener picks the frame source: an MJPEG stream, or a directory of
// still images for demos and bench tests.
func cameraOpener(cfg config.Config, log *utils.Logger) (scan.OpenFunc, error) {
	switch {
	case cfg.CameraURL != "":
		// No client timeout: the stream stays open for the whole session.
		stream := &http.Client{}
		return func(ctx context.Context) (scan.Source, error) {
			src, err := camera.OpenMJPEG(ctx, stream, cfg.CameraURL, log)
			if err != nil {
				return nil, err
			}
			return src, nil
		}, nil
	case cfg.CameraDir != "":
		return func(ctx context.Context) (scan.Source, error) {
			src, err := camera.OpenDir(cfg.CameraDir)
			if err != nil {
				return nil, err
			}
			return src, nil
		}, nil
	}
	return nil, errors.New("no camera configured: set CAMERA_URL or CAMERA_DIR")
}
