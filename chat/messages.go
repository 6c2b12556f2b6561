package chat

// User-facing reply texts. Kept in one place so the transport and tests
// reference the exact strings the bot sends.
const (
	MsgWelcome = "👋 Welcome to Anonymous Chat!\n\nUse 🔍 Find to connect with someone, or ❌ Stop to end the chat."

	MsgCooldown         = "⏳ Please wait before trying again."
	MsgAlreadyConnected = "⚠️ You are already connected. Click ❌ Stop to end the chat."
	MsgConnected        = "✅ You're now connected! Say hi."
	MsgWaiting          = "🕓 You're in the queue. You'll be connected as soon as someone else looks for a chat."

	MsgDisconnected        = "✅ You have disconnected."
	MsgPartnerDisconnected = "🚫 Your chat partner has disconnected."
	MsgNotConnected        = "⚠️ You're not connected to anyone."
	MsgPartnerGone         = "⚠️ Your partner has disconnected."
	MsgIdleRelay           = "💬 You're not connected. Use 🔍 Find to start a chat."

	MsgSignupDone    = "📝 Account created. Use /login to open the home menu."
	MsgSignupAlready = "⚠️ You already have an account."
	MsgLoginOK       = "🔓 Welcome back!\n\nUse 🔍 Find to connect with someone."
	MsgLoginNoAcct   = "⚠️ No account found. Use /signup first."
	MsgSignupFirst   = "⚠️ Please /signup before using the chat."
)
