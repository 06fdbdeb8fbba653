package agent

// Fixed user-facing replies. Backticks are sent literally; the Telegram
// channel does not enable a parse mode.
const (
	welcomeReply = "👋 Hey! I'm SkynixIQ, your smart weather assistant.\n" +
		"Need the forecast? Just ask me something like:\n\n" +
		"• `weather in Accra`\n" +
		"• `what's the weather in Cape Town?`\n" +
		"• or simply type the city name!\n\n" +
		"I'll get you the latest weather in seconds. ☁️🌤️🌧️"

	greetingReply = "👋 Hi there! I'm SkynixIQ, your weather assistant. " +
		"Just type `weather in [city]` or simply the city name to get the latest forecast!"

	cityNotDetectedReply = "⚠️ I couldn't detect the city. Try: `weather in Cape Town`"

	unrecognizedReply = "❓ Try one of the following:\n" +
		"• `weather in Nairobi`\n" +
		"• or just type the city name like `Accra`"

	voiceNotUnderstoodReply = "😶 I couldn't understand that voice message."
	voiceErrorPrefix        = "❌ Error processing voice: "
	transcriptEchoPrefix    = "🗣️ You said: "

	panicReply       = "❌ Something broke while handling your message."
	rateLimitedReply = "⏳ You're sending messages too fast. Please slow down and try again in a moment."
)
