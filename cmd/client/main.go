// Command client is the staff command line for the attendance server:
// accounts, attendance lists, reports and student badges.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"

	"asistenciaqr/internal/api"
	"asistenciaqr/internal/attendance"
	"asistenciaqr/internal/auth"
	"asistenciaqr/internal/certs"
	"asistenciaqr/internal/config"
	"asistenciaqr/internal/export"
	"asistenciaqr/internal/files"
	"asistenciaqr/internal/models"
	"asistenciaqr/internal/qr"
)

type options struct {
	cmd    string
	grado  string
	fecha  string
	turno  string
	codes  string
	id     int
	format string
	out    string
	size   int
	limit  int

	reg auth.RegistrationForm
}

func main() {
	var o options
	flag.StringVar(&o.cmd, "cmd", "list", "Command: login|register|list|mark|delete|report|export|badges|journal")
	configPath := flag.String("config", "config.json", "Path to config.json")
	serverFlag := flag.String("server", "", "Override server base URL (e.g. https://colegio.example.pe)")
	flag.StringVar(&o.grado, "grado", "", "Grade")
	flag.StringVar(&o.fecha, "fecha", time.Now().Format(models.DateLayout), "Date (YYYY-MM-DD)")
	flag.StringVar(&o.turno, "turno", models.ShiftMorning, "Shift: manana|tarde")
	flag.StringVar(&o.codes, "codes", "", "Comma separated student codes (mark)")
	flag.IntVar(&o.id, "id", 0, "Student ID (delete)")
	flag.StringVar(&o.format, "format", export.FormatExcel, "Export format: xlsx|pdf")
	flag.StringVar(&o.out, "out", ".", "Output directory (export, badges)")
	flag.IntVar(&o.size, "size", qr.DefaultBadgeSize, "Badge size in pixels")
	flag.IntVar(&o.limit, "limit", 20, "Journal entries to show")
	flag.StringVar(&o.reg.FirstName, "first", "", "First name (register)")
	flag.StringVar(&o.reg.LastName, "last", "", "Last name (register)")
	flag.StringVar(&o.reg.DNI, "dni", "", "DNI (register)")
	flag.StringVar(&o.reg.Email, "email", "", "Email (register)")
	flag.StringVar(&o.reg.Phone, "phone", "", "Phone (register)")
	flag.StringVar(&o.reg.Password, "password", "", "Password (register)")
	flag.StringVar(&o.reg.ConfirmPassword, "confirm", "", "Password again (register)")
	flag.BoolVar(&o.reg.AcceptTerms, "accept-terms", false, "Accept the terms (register)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	if *serverFlag != "" {
		cfg.Server = strings.TrimRight(*serverFlag, "/")
	}
	if err := run(context.Background(), cfg, o); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, o options) error {
	if o.cmd == "journal" {
		return showJournal(cfg, o.limit)
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	if o.cmd == "register" {
		return register(ctx, client, o.reg)
	}
	if err := login(ctx, client, cfg); err != nil {
		return err
	}
	svc := attendance.NewService(client, &attendance.Roster{}, nil)
	f := models.Filter{Grado: o.grado, Fecha: o.fecha, Turno: o.turno}

	switch o.cmd {
	case "login":
		acc, err := client.CheckAuth(ctx)
		if err != nil {
			return err
		}
		if acc == nil {
			return errors.New("session was not kept by the server")
		}
		fmt.Printf("Logged in as %s %s <%s>\n", acc.Nombre, acc.Apellido, acc.Email)
		return nil
	case "list":
		if err := auth.ValidateFilter(f); err != nil {
			return err
		}
		if err := svc.Load(ctx, f); err != nil {
			return err
		}
		printRoster(svc.Roster())
		return nil
	case "mark":
		return mark(ctx, svc, f, o.codes)
	case "delete":
		if o.id <= 0 {
			return errors.New("--id required")
		}
		msg, err := client.DeleteStudent(ctx, o.id)
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	case "report":
		rep, err := svc.Report(ctx, f)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "export":
		rep, err := svc.Report(ctx, f)
		if err != nil {
			return err
		}
		path, err := export.WriteFile(o.out, rep, o.format)
		if err != nil {
			return err
		}
		fmt.Println("Reporte guardado en", path)
		return nil
	case "badges":
		return badges(ctx, client, o)
	}
	return errors.Errorf("unknown command %q", o.cmd)
}

func newClient(cfg config.Config) (*api.Client, error) {
	opts := []api.Option{api.WithTimeout(cfg.HTTPTimeout)}
	if cfg.CADir != "" {
		tlsCfg, expired, err := certs.NewCertManager(cfg.CADir).TLSConfig()
		if err != nil {
			return nil, errors.Wrap(err, "load CA certificates")
		}
		for _, subject := range expired {
			fmt.Println("Warning: skipping expired CA certificate", subject)
		}
		opts = append(opts, api.WithTLSConfig(tlsCfg))
	}
	return api.New(cfg.Server, opts...)
}

func login(ctx context.Context, client *api.Client, cfg config.Config) error {
	form := auth.LoginForm{Email: cfg.Email, Password: cfg.Password}
	if err := auth.Validate(form); err != nil {
		return errors.Wrap(err, "set ASISTENCIA_EMAIL and ASISTENCIA_PASSWORD")
	}
	return client.Login(ctx, form.Email, form.Password)
}

func register(ctx context.Context, client *api.Client, form auth.RegistrationForm) error {
	if err := auth.Validate(form); err != nil {
		return err
	}
	if err := client.Register(ctx, form.Registration()); err != nil {
		return err
	}
	fmt.Println("Registro exitoso.")
	return nil
}

// mark loads the list, flags the given codes present and saves it.
func mark(ctx context.Context, svc *attendance.Service, f models.Filter, codes string) error {
	if strings.TrimSpace(codes) == "" {
		return errors.New("--codes required")
	}
	if err := auth.ValidateFilter(f); err != nil {
		return err
	}
	if err := svc.Load(ctx, f); err != nil {
		return err
	}
	now := time.Now()
	for _, code := range strings.Split(codes, ",") {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		if !svc.Roster().MarkPresent(code, now) {
			fmt.Println("Sin cambios:", code)
		}
	}
	msg, err := svc.Save(ctx, f)
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

func badges(ctx context.Context, client *api.Client, o options) error {
	if strings.TrimSpace(o.grado) == "" {
		return errors.New("--grado required")
	}
	students, err := client.Students(ctx, o.grado)
	if err != nil {
		return err
	}
	for _, st := range students {
		path, err := qr.WriteBadge(o.out, st.CodigoID, o.size)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\n", st.FullName(), path)
	}
	return nil
}

func printRoster(r *attendance.Roster) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tAPELLIDOS\tNOMBRES\tCODIGO\tASISTIO\tHORA")
	for i, row := range r.Rows() {
		asistio := "No"
		if row.Asistio {
			asistio = "Sí"
		}
		hora := row.Hora
		if hora == "" {
			hora = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", i+1, row.Apellidos, row.Nombres, row.CodigoID, asistio, hora)
	}
	w.Flush()
	sum := r.Summary()
	fmt.Printf("Presentes: %d | Ausentes: %d | Total: %d\n", sum.Present, sum.Absent, sum.Total)
}

func showJournal(cfg config.Config, limit int) error {
	journal, err := files.OpenJournal(cfg.JournalPath)
	if err != nil {
		return err
	}
	for _, e := range journal.Recent(limit) {
		line := fmt.Sprintf("%s  %-15s %-12s %s %s", e.At.Local().Format(time.DateTime), e.Status, e.Code, e.Fecha, e.Turno)
		if e.StudentName != "" {
			line += "  " + e.StudentName
		}
		if e.Error != "" {
			line += "  (" + e.Error + ")"
		}
		fmt.Println(line)
	}
	return nil
}
