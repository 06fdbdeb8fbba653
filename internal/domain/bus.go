package domain

// MessageBus routes messages between channels and the pipeline loop.
type MessageBus interface {
	Publish(msg InboundMessage)
	Subscribe() <-chan InboundMessage
	SendOutbound(msg OutboundMessage) error
	OnOutbound(channelName string, handler func(OutboundMessage) error)
	Close()
}
