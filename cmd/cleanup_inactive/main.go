package main

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/City-Bureau/intakechat/pkg/app"
	"github.com/City-Bureau/intakechat/pkg/bot"
)

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	lambda.Start(func(ctx context.Context, request events.CloudWatchEvent) error {
		closed, err := bot.CloseInactive(ctx, a.Store, a.Config.Bot.InactiveFor, time.Now().UTC())
		if err != nil {
			return err
		}
		a.Logger.Info("closed inactive conversations", "count", closed, "window", a.Config.Bot.InactiveFor.String())
		return nil
	})
}
