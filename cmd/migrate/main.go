package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/City-Bureau/intakechat/pkg/app"
	"github.com/City-Bureau/intakechat/pkg/store"
)

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	lambda.Start(func(ctx context.Context, request events.CloudWatchEvent) error {
		if err := store.Migrate(a.DB); err != nil {
			return err
		}
		a.Logger.Info("migrated database schema")
		return nil
	})
}
