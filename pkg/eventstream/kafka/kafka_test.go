package kafka_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/perpetual-s/gemi/pkg/eventstream"
	"github.com/perpetual-s/gemi/pkg/eventstream/kafka"
)

func TestKafka(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Kafka Suite")
}

var _ = Describe("Publisher", func() {
	It("requires at least one broker", func() {
		_, err := kafka.NewPublisher(kafka.Config{}, zap.NewNop())
		Expect(err).To(HaveOccurred())
	})

	It("rejects events without a turn before touching the network", func() {
		publisher, err := kafka.NewPublisher(kafka.Config{
			Brokers: []string{"localhost:9092"},
		}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		defer publisher.Close()

		err = publisher.PublishTurnPersisted(context.Background(), eventstream.TurnPersistedEvent{})
		Expect(err).To(MatchError(eventstream.ErrEmptyTurn))
	})
})
