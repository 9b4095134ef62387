// Command server runs the in-memory attendance backend for desk demos and
// local development.
package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"asistenciaqr/internal/models"
	"asistenciaqr/internal/qr"
	"asistenciaqr/internal/stub"
	"asistenciaqr/internal/utils"
)

var demoStudents = []models.Student{
	{Nombres: "Rosa", Apellidos: "Mamani Quispe", DNI: "71234561", Grado: "1ro Secundaria"},
	{Nombres: "Jorge", Apellidos: "Flores Huamán", DNI: "71234562", Grado: "1ro Secundaria"},
	{Nombres: "Lucía", Apellidos: "Condori Ramos", DNI: "71234563", Grado: "1ro Secundaria"},
	{Nombres: "Miguel", Apellidos: "Torres Vega", DNI: "72234564", Grado: "2do Secundaria"},
}

func main() {
	addr := flag.String("addr", ":5000", "Listen address")
	email := flag.String("email", "docente@colegio.pe", "Demo staff email")
	password := flag.String("password", "secreto123", "Demo staff password")
	badges := flag.String("badges", "", "Write the QR badges of the demo students to this directory")
	legacy := flag.Bool("legacy-scan", false, "Answer scans with the deprecated {success, message} shape")
	flag.Parse()

	log, err := utils.NewLogger(os.Getenv("LOG_FILE"), utils.ParseLevel(os.Getenv("LOG_LEVEL")))
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	defer log.Close()

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		log.Error("generate session secret", utils.Fields{"err": err})
		os.Exit(1)
	}
	backend := stub.New(secret, log)
	backend.LegacyScan = *legacy
	if err := backend.AddAccount(*email, *password, "Ana", "Quispe", "12345678"); err != nil {
		log.Error("seed account", utils.Fields{"err": err})
		os.Exit(1)
	}
	for _, st := range demoStudents {
		st = backend.AddStudent(st)
		log.Info("seeded student", utils.Fields{"codigo_id": st.CodigoID, "grado": st.Grado})
		if *badges != "" {
			if _, err := qr.WriteBadge(*badges, st.CodigoID, qr.DefaultBadgeSize); err != nil {
				log.Error("write badge", utils.Fields{"codigo_id": st.CodigoID, "err": err})
			}
		}
	}

	srv := &http.Server{Addr: *addr, Handler: backend.Router(), ReadHeaderTimeout: 10 * time.Second}
	log.Info("attendance backend running", utils.Fields{"addr": *addr, "email": *email})
	if err := srv.ListenAndServe(); err != nil {
		log.Error("server stopped", utils.Fields{"err": err})
		os.Exit(1)
	}
}
