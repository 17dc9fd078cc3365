package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Aciila/go-ddd-boilerplate/config"
	"github.com/Aciila/go-ddd-boilerplate/internal/worker"
	"github.com/Aciila/go-ddd-boilerplate/pkg/helpers"
	"github.com/Aciila/go-ddd-boilerplate/pkg/mailer"
	"github.com/Aciila/go-ddd-boilerplate/pkg/mailer/templates"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-email-worker", cfg.Env)

	if !cfg.MailSendEnabled {
		logger.Info("MAIL_SEND_ENABLED=false; email worker disabled (no real emails will be sent)")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQExchange == "" || cfg.RabbitMQEventsQueue == "" {
		logger.Fatal("RabbitMQ not configured")
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		logger.Fatal("Mailgun not configured")
	}

	consumer, err := helpers.NewRabbitConsumer(cfg.RabbitMQURL, cfg.EventsTopology(), 16)
	if err != nil {
		logger.WithError(err).Fatal("amqp setup failed")
	}
	defer consumer.Close()

	msgs, err := consumer.Deliveries()
	if err != nil {
		logger.WithError(err).Fatal("consume failed")
	}

	mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender, cfg.MailgunAPIBase)
	w := worker.NewWelcomeMailer(mg, templates.Brand{
		CompanyName: cfg.CompanyName,
		AppName:     cfg.AppName,
		SupportURL:  cfg.SupportURL,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.WithFields(logrus.Fields{
		"exchange": cfg.RabbitMQExchange,
		"queue":    cfg.RabbitMQEventsQueue,
	}).Info("email worker listening")
	w.Run(ctx, msgs)
	logger.Info("email worker stopped")
}
