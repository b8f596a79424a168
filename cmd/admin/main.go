package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"dapbuddy/backend/internal/dispute"
	"dapbuddy/backend/internal/exchange"
	"dapbuddy/backend/internal/storage"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	storageSvc := storage.NewStorageService(db, nil) // No redis needed for admin CLI

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <command> [args]")
		fmt.Println("Commands: mediation-list, mediation-resolve <case_id>, expire-sweep")
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "mediation-list":
		cases, err := storageSvc.ListOpenMediationCases()
		if err != nil {
			log.Fatalf("Error listing mediation cases: %v", err)
		}
		if len(cases) == 0 {
			fmt.Println("No open mediation cases.")
			return
		}
		for _, c := range cases {
			fmt.Printf("%s  booking=%s exchange=%s host=%s member=%s reasons=%v\n",
				c.CaseID, c.BookingID, c.ExchangeID, c.HostID, c.MemberID, []string(c.Reasons))
		}
	case "mediation-resolve":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin mediation-resolve <case_id>")
			os.Exit(1)
		}
		caseID := os.Args[2]
		disputeSvc := dispute.NewService(storageSvc, exchange.NewMachine(storageSvc), nil)
		if err := disputeSvc.Resolve(caseID); err != nil {
			log.Fatalf("Error resolving mediation case: %v", err)
		}
		fmt.Printf("Mediation case %s resolved.\n", caseID)
	case "expire-sweep":
		if err := expireSweep(storageSvc); err != nil {
			log.Fatalf("Error running expire sweep: %v", err)
		}
	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

// expireSweep wipes the payload of every revealed record whose window
// elapsed. The read path already refuses expired payloads; the sweep
// makes sure the values do not linger at rest either.
func expireSweep(s *storage.Service) error {
	recs, err := s.ListExpiredUnwiped(time.Now())
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if err := s.WipeExchangePayload(rec.ID); err != nil {
			log.Printf("ERROR: failed to wipe exchange %s: %v", rec.ID, err)
			continue
		}
		fmt.Printf("Wiped expired exchange %s (booking %s)\n", rec.ID, rec.BookingID)
	}
	fmt.Printf("Sweep complete. %d records wiped.\n", len(recs))
	return nil
}
