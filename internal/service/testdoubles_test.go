package service

import (
	"github.com/ThreeDotsLabs/watermill/message"

	boqmessage "github.com/boq-project/notify-dispatch/internal/domain/message"
	"github.com/boq-project/notify-dispatch/internal/domain/types"
)

type noopAvatars struct{}

func (noopAvatars) Resolve(sender boqmessage.SenderInfo, realmID types.RealmId, clientGravatar bool) *string {
	return nil
}

type noopPublisher struct{}

func (noopPublisher) Publish(topic string, messages ...*message.Message) error { return nil }
func (noopPublisher) Close() error                                             { return nil }

type capturingPublisher struct {
	published []string
}

func (p *capturingPublisher) Publish(topic string, messages ...*message.Message) error {
	p.published = append(p.published, topic)
	return nil
}
func (p *capturingPublisher) Close() error { return nil }
