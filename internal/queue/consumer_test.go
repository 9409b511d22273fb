package queue_test

import (
	"github.com/redis/go-redis/v9"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"signalhub.app/correlator/internal/queue"
)

var _ = Describe("ParseMessage", func() {
	It("parses a signal task", func() {
		msg, err := queue.ParseMessage(redis.XMessage{
			ID: "1-0",
			Values: map[string]any{
				"task_type": "signal",
				"signal_id": "12345",
				"source":    "github",
				"trace_id":  "abc123",
				"attempt":   "2",
			},
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(msg.TaskType).To(Equal(queue.TaskTypeSignal))
		Expect(msg.SignalID).ToNot(BeNil())
		Expect(*msg.SignalID).To(Equal(int64(12345)))
		Expect(msg.Source).To(Equal("github"))
		Expect(msg.TraceID).To(Equal("abc123"))
		Expect(msg.Attempt).To(Equal(2))
	})

	It("defaults attempt to 1", func() {
		msg, err := queue.ParseMessage(redis.XMessage{
			ID:     "1-0",
			Values: map[string]any{"task_type": "correlate_batch"},
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(msg.Attempt).To(Equal(1))
	})

	It("accepts batch and seed tasks without a signal id", func() {
		for _, taskType := range []string{"correlate_batch", "seed_fixes"} {
			msg, err := queue.ParseMessage(redis.XMessage{
				ID:     "1-0",
				Values: map[string]any{"task_type": taskType},
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(msg.SignalID).To(BeNil())
		}
	})

	It("treats a legacy message with only a signal id as a signal task", func() {
		msg, err := queue.ParseMessage(redis.XMessage{
			ID:     "1-0",
			Values: map[string]any{"signal_id": "7"},
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(msg.TaskType).To(Equal(queue.TaskTypeSignal))
	})

	It("rejects a signal task without a signal id", func() {
		_, err := queue.ParseMessage(redis.XMessage{
			ID:     "1-0",
			Values: map[string]any{"task_type": "signal"},
		})
		Expect(err).To(MatchError(ContainSubstring("missing signal_id")))
	})

	It("rejects an unknown task type", func() {
		_, err := queue.ParseMessage(redis.XMessage{
			ID:     "1-0",
			Values: map[string]any{"task_type": "reticulate_splines"},
		})
		Expect(err).To(MatchError(ContainSubstring("unknown task_type")))
	})

	It("rejects a message with no routable fields", func() {
		_, err := queue.ParseMessage(redis.XMessage{ID: "1-0", Values: map[string]any{}})
		Expect(err).To(MatchError(ContainSubstring("missing task_type")))
	})

	It("rejects a non-numeric signal id", func() {
		_, err := queue.ParseMessage(redis.XMessage{
			ID:     "1-0",
			Values: map[string]any{"task_type": "signal", "signal_id": "not-a-number"},
		})
		Expect(err).To(MatchError(ContainSubstring("parsing signal_id")))
	})
})
