package notify

// FakePublisher records published messages for test assertions.
type FakePublisher struct {
	Topics   []string
	Payloads [][]byte

	// PublishError, if set, is returned by Publish.
	PublishError error
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) Publish(topic string, payload []byte) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Topics = append(f.Topics, topic)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

func (f *FakePublisher) Reset() {
	f.Topics = nil
	f.Payloads = nil
	f.PublishError = nil
}
