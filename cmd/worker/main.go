package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"golang.org/x/sync/errgroup"

	"resume-review/internal/bootstrap"
	"resume-review/internal/shared/config"
	"resume-review/internal/shared/metrics"
	"resume-review/internal/shared/telemetry"
	"resume-review/internal/workerproc"
)

func main() {
	cfg := config.Load()
	telemetry.Configure(cfg.LogLevel, false)

	queueURL := strings.TrimSpace(cfg.ReviewQueueURL)
	if queueURL == "" {
		log.Fatal("REVIEW_QUEUE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}
	var sqsClient sqsAPI = sqs.NewFromConfig(awsCfg)

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	concurrency := max(1, cfg.WorkerConcurrency)
	var g errgroup.Group
	g.SetLimit(concurrency)

	telemetry.Info("worker.started", map[string]any{
		"queue_url":          queueURL,
		"concurrency":        concurrency,
		"visibility_seconds": cfg.VisibilityTimeoutSeconds,
	})

	for ctx.Err() == nil {
		resp, err := sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   int32(cfg.VisibilityTimeoutSeconds),
			AttributeNames:      []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName("ApproximateReceiveCount")},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break
			}
			telemetry.Warn("worker.receive_failed", map[string]any{"error": err.Error()})
			continue
		}

		for _, msg := range resp.Messages {
			if ctx.Err() != nil {
				break
			}
			msg := msg
			metrics.IncReviewJobsReceived()
			g.Go(func() error {
				// In-flight jobs finish even after a shutdown signal.
				handleMessage(context.WithoutCancel(ctx), sqsClient, queueURL, app.Reviews, msg)
				return nil
			})
		}
	}

	shutdownTimeout := cfg.ShutdownTimeout
	telemetry.Info("worker.shutdown", map[string]any{"timeout_ms": shutdownTimeout.Milliseconds()})
	waitDone := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(shutdownTimeout):
		telemetry.Warn("worker.shutdown_timeout", nil)
	}
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

func handleMessage(ctx context.Context, client sqsAPI, queueURL string, proc workerproc.Processor, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)
	decoded, meta, err := workerproc.ParseMessage(body)
	if err != nil {
		fields := baseFields(msg, decoded.SessionID, decoded.RequestID)
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		fields["error"] = err.Error()
		telemetry.Error("worker.review.decode_failed", fields)
		if deleteMessage(ctx, client, queueURL, msg, decoded.SessionID, decoded.RequestID) {
			metrics.IncReviewJobsDeletedUnrecoverable()
		}
		return
	}

	telemetry.Info("worker.review.received", baseFields(msg, decoded.SessionID, decoded.RequestID))

	if err := workerproc.Process(ctx, proc, decoded); err != nil {
		fields := baseFields(msg, decoded.SessionID, decoded.RequestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.review.failed", fields)
		metrics.IncReviewJobsFailed()
		return
	}

	if deleteMessage(ctx, client, queueURL, msg, decoded.SessionID, decoded.RequestID) {
		telemetry.Info("worker.review.completed", baseFields(msg, decoded.SessionID, decoded.RequestID))
		metrics.IncReviewJobsCompleted()
	}
}

func deleteMessage(ctx context.Context, client sqsAPI, queueURL string, msg sqstypes.Message, sessionID, requestID string) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := baseFields(msg, sessionID, requestID)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.review.delete_failed", fields)
		return false
	}
	if _, err := client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := baseFields(msg, sessionID, requestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.review.delete_failed", fields)
		return false
	}
	return true
}

func baseFields(msg sqstypes.Message, sessionID, requestID string) map[string]any {
	fields := map[string]any{
		"session_id":     sessionID,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	if msg.Attributes == nil {
		return 0
	}
	raw := msg.Attributes["ApproximateReceiveCount"]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}
