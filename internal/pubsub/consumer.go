// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package pubsub consumes the platform's SQS queues: ingest requests and
// transcode completion events.
package pubsub

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/cardinalhq/mediarunner/internal/logctx"
)

// Handler processes one queue message body. A nil return deletes the
// message; an error leaves it for redelivery after the visibility timeout.
type Handler interface {
	Handle(ctx context.Context, body string) error
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Consumer long-polls one queue and feeds messages to a handler, one at a
// time in arrival order.
type Consumer struct {
	api      sqsAPI
	queueURL string
	handler  Handler
}

func NewConsumer(api sqsAPI, queueURL string, handler Handler) *Consumer {
	return &Consumer{
		api:      api,
		queueURL: queueURL,
		handler:  handler,
	}
}

// Run polls until the context is cancelled. Receive errors are logged and
// polling continues; only context cancellation stops the loop.
func (c *Consumer) Run(ctx context.Context) error {
	ll := logctx.FromContext(ctx)
	ll.Info("Starting queue consumer", "queue", c.queueURL)

	for {
		if err := ctx.Err(); err != nil {
			ll.Info("Queue consumer stopping", "queue", c.queueURL)
			return err
		}

		out, err := c.api.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			ll.Error("Failed to receive messages", "queue", c.queueURL, "error", err)
			continue
		}

		for _, msg := range out.Messages {
			body := aws.ToString(msg.Body)
			if err := c.handler.Handle(ctx, body); err != nil {
				ll.Error("Message handling failed, leaving for redelivery",
					"queue", c.queueURL, "messageId", aws.ToString(msg.MessageId), "error", err)
				continue
			}
			if _, err := c.api.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(c.queueURL),
				ReceiptHandle: msg.ReceiptHandle,
			}); err != nil {
				ll.Error("Failed to delete handled message",
					"queue", c.queueURL, "messageId", aws.ToString(msg.MessageId), "error", err)
			}
		}
	}
}
