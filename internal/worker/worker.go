// Package worker consumes the Kafka job topics: structured plan generation
// and order-confirmation emails.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"

	"github.com/honestmeals/honestmeals/internal/chat"
	"github.com/honestmeals/honestmeals/internal/config"
	"github.com/honestmeals/honestmeals/internal/gymna"
	"github.com/honestmeals/honestmeals/internal/handlers"
	"github.com/honestmeals/honestmeals/internal/jobs"
	"github.com/honestmeals/honestmeals/internal/ledger"
	"github.com/honestmeals/honestmeals/internal/models"
	"github.com/honestmeals/honestmeals/internal/plans"
	"github.com/honestmeals/honestmeals/pkg/database"
)

type Worker struct {
	cfg      *config.Config
	db       *database.Clients
	consumer sarama.ConsumerGroup
	ready    chan bool

	ledger  *ledger.Ledger
	chats   *chat.Store
	plans   *plans.Store
	tracker *jobs.PlanTracker
	model   gymna.ModelClient
}

func NewWorker(cfg *config.Config, db *database.Clients, consumer sarama.ConsumerGroup) *Worker {
	slog.Info("Initializing new Worker")
	return &Worker{
		cfg:      cfg,
		db:       db,
		consumer: consumer,
		ready:    make(chan bool),
		ledger:   ledger.New(db.DB),
		chats:    chat.NewStore(db.DB),
		plans:    plans.NewStore(db.DB),
		tracker:  jobs.NewPlanTracker(db.Redis, 24*time.Hour),
	}
}

// WithModel injects a model client; tests use it and production lets the
// client be constructed lazily on first use.
func (w *Worker) WithModel(m gymna.ModelClient) *Worker {
	w.model = m
	return w
}

func (w *Worker) modelClient() (gymna.ModelClient, error) {
	if w.model != nil {
		return w.model, nil
	}
	m, err := gymna.NewModelClient(w.cfg.Gemini.Model, w.cfg.Gemini.Timeout)
	if err != nil {
		return nil, err
	}
	w.model = m
	return m, nil
}

func (w *Worker) Start(ctx context.Context) error {
	topics := []string{w.cfg.Kafka.PlanTopic, w.cfg.Kafka.EmailTopic}
	slog.Info("Starting worker", "topics", topics)

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for err := range w.consumer.Errors() {
			slog.Error("Kafka consumer error received", "error", err)
		}
	}()

	go func() {
		for {
			if err := w.consumer.Consume(ctx, topics, w); err != nil {
				slog.Error("Error from consumer.Consume", "error", err)
			}
			if ctx.Err() != nil {
				return
			}
			// Reset the ready channel after a new session is created
			w.ready = make(chan bool)
		}
	}()

	<-w.ready // Wait till the consumer has been set up
	slog.Info("Worker setup complete; consumer ready")

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("Context cancelled; shutting down worker")
	}

	slog.Info("Worker shutting down gracefully")
	return nil
}

// Setup is run at the beginning of a new session, before ConsumeClaim.
func (w *Worker) Setup(sarama.ConsumerGroupSession) error {
	close(w.ready)
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited.
func (w *Worker) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim must start a consumer loop of ConsumerGroupClaim's Messages().
func (w *Worker) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		slog.Info("Message received from Kafka", "topic", message.Topic, "offset", message.Offset, "partition", message.Partition)
		if err := w.processMessage(session.Context(), message); err != nil {
			slog.Error("Failed to process job", "topic", message.Topic, "error", err)
		}
		session.MarkMessage(message, "")
	}
	return nil
}

func (w *Worker) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	switch msg.Topic {
	case w.cfg.Kafka.PlanTopic:
		return w.ProcessPlanJob(ctx, msg.Value)
	case w.cfg.Kafka.EmailTopic:
		return handlers.SendOrderEmail(msg.Value)
	default:
		return fmt.Errorf("unexpected topic: %s", msg.Topic)
	}
}

// ProcessPlanJob runs one structured plan generation. The credit was debited
// when the job was enqueued; a terminal failure refunds it.
func (w *Worker) ProcessPlanJob(ctx context.Context, payload []byte) error {
	if err := jobs.ValidatePlanJobWithGJSON(payload); err != nil {
		// Unparseable jobs carry no recoverable user context; nothing to refund.
		return fmt.Errorf("invalid plan job payload: %w", err)
	}

	var job jobs.PlanJobPayload
	if err := json.Unmarshal(payload, &job); err != nil {
		return fmt.Errorf("failed to parse plan job: %w", err)
	}

	var finalErr error
	for attempt := 1; attempt <= w.cfg.Kafka.RetryMax; attempt++ {
		finalErr = w.runPlanJob(ctx, job)
		if finalErr == nil {
			return nil
		}
		slog.Error("Plan generation attempt failed", "jobID", job.JobID, "attempt", attempt, "error", finalErr)
		w.tracker.Update(ctx, job.JobID, models.PlanJobFailed, finalErr)
		time.Sleep(w.cfg.Kafka.RetryBackoff)
	}

	// Terminal failure: compensate the debit taken at enqueue time.
	if _, err := w.ledger.Credit(ctx, job.UserID, gymna.PlanCost); err != nil {
		slog.Error("Refund failed after plan job failure; balance left short", "jobID", job.JobID, "userID", job.UserID, "error", err)
	} else {
		slog.Info("Refunded plan credits after failed job", "jobID", job.JobID, "userID", job.UserID, "amount", gymna.PlanCost)
	}
	return finalErr
}

func (w *Worker) runPlanJob(ctx context.Context, job jobs.PlanJobPayload) error {
	w.tracker.Update(ctx, job.JobID, models.PlanJobGenerating, nil)

	model, err := w.modelClient()
	if err != nil {
		return err
	}

	raw, err := model.GenerateStructured(ctx, jobs.BuildPlanPrompt(job.PlanType, job.Answers))
	if err != nil {
		return fmt.Errorf("LLM processing error: %w", err)
	}

	w.tracker.Update(ctx, job.JobID, models.PlanJobParsing, nil)
	title, planPayload, err := plans.ParsePlanOutput(job.PlanType, raw)
	if err != nil {
		return err
	}

	w.tracker.Update(ctx, job.JobID, models.PlanJobStoring, nil)
	record, err := w.plans.Insert(ctx, models.PlanRecord{
		ChatID:   job.ChatID,
		UserID:   job.UserID,
		PlanType: job.PlanType,
		Title:    title,
		Payload:  planPayload,
	})
	if err != nil {
		return err
	}

	// Surface the result in the conversation as a plan_table turn.
	note := fmt.Sprintf("Your %s plan \"%s\" is ready. | Open the Plans tab to view it.", job.PlanType, title)
	if _, err := w.chats.AppendMessage(ctx, job.ChatID, models.RoleAssistant, note, models.MessageTypePlanTable); err != nil {
		slog.Error("Failed to append plan message", "jobID", job.JobID, "error", err)
	} else if err := w.chats.Touch(ctx, job.ChatID); err != nil {
		slog.Error("Failed to touch chat", "chatID", job.ChatID, "error", err)
	}

	w.tracker.SetPlanID(ctx, job.JobID, record.ID)
	w.tracker.Update(ctx, job.JobID, models.PlanJobComplete, nil)
	slog.Info("Plan job completed", "jobID", job.JobID, "planID", record.ID)
	return nil
}
