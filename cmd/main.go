// Dev harness for the client core: exercises the image validator and
// the payment poller against a real backend without the mobile shell.
package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/wachira567/victorsprings-client/internal/api"
	"github.com/wachira567/victorsprings-client/internal/config"
	"github.com/wachira567/victorsprings-client/internal/imagecheck"
	"github.com/wachira567/victorsprings-client/internal/session"
	"github.com/wachira567/victorsprings-client/internal/tenancy"
	"github.com/wachira567/victorsprings-client/internal/utils"
)

func main() {
	godotenv.Load()

	cfg := config.LoadConfig()
	utils.InitLogger(cfg.AppName)

	sess := session.New(session.User{}, os.Getenv("SESSION_BEARER_TOKEN"))
	client, err := api.NewClient(cfg.APIBaseURL, sess, cfg.HTTPTimeout)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to build API client")
	}

	if imgPath := os.Getenv("SMOKE_IMAGE"); imgPath != "" {
		data, err := os.ReadFile(imgPath)
		if err != nil {
			utils.Logger.WithError(err).Fatalf("Could not read %s", imgPath)
		}
		verdict := imagecheck.Validate(data)
		if verdict.OK {
			utils.Logger.Infof("%s: valid document image", imgPath)
		} else {
			utils.Logger.Warnf("%s: rejected: %s", imgPath, verdict.Reason)
		}
	}

	if paymentID := os.Getenv("SMOKE_PAYMENT_ID"); paymentID != "" {
		utils.Logger.Infof("Polling payment %s (%d attempts at %v)...", paymentID, cfg.PollMaxAttempts, cfg.PollInterval)
		poller := tenancy.NewPoller(client, cfg.PollInterval, cfg.PollMaxAttempts)
		poller.Start(context.Background(), paymentID, func(o tenancy.Outcome) {
			utils.Logger.Infof("Payment %s resolved: %s", paymentID, o)
		})
		<-poller.Done()
	}
}
