package eventstream

import (
	"encoding/json"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/perpetual-s/gemi/pkg/chat"
)

func TestEventstream(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Eventstream Suite")
}

var _ = Describe("NewTurnPersisted", func() {
	It("wraps the turn in a versioned envelope", func() {
		turn := chat.NewTurn(chat.RoleAssistant, "It went well!")
		event := NewTurnPersisted(turn)

		Expect(event.ID).NotTo(BeEmpty())
		Expect(event.Type).To(Equal(TypeTurnPersisted))
		Expect(event.SchemaVersion).To(Equal(SchemaVersionV1))
		Expect(event.OccurredAt).NotTo(BeZero())
		Expect(event.Turn).To(Equal(turn))
	})

	It("assigns a distinct id per event", func() {
		turn := chat.NewTurn(chat.RoleAssistant, "It went well!")
		Expect(NewTurnPersisted(turn).ID).NotTo(Equal(NewTurnPersisted(turn).ID))
	})

	It("serializes with stable field names", func() {
		event := NewTurnPersisted(chat.NewTurn(chat.RoleUser, "hello"))

		data, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var decoded map[string]any
		Expect(json.Unmarshal(data, &decoded)).To(Succeed())
		Expect(decoded).To(HaveKey("id"))
		Expect(decoded).To(HaveKey("type"))
		Expect(decoded).To(HaveKey("schema_version"))
		Expect(decoded).To(HaveKey("occurred_at"))
		Expect(decoded).To(HaveKey("turn"))
	})
})
