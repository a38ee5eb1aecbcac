package constants

// Setting keys stored in the settings table
const (
	SettingCooldownHours = "cooldown_hours"
	SettingKeyMessage    = "key_message"
)

const (
	MinCooldownHours = 1
	MaxCooldownHours = 720

	KeyPlaceholder = "{key}"
)

// DefaultKeyMessage is the delivery template seeded on first boot.
// Supported placeholders: {key} {duration} {product} {link}
const DefaultKeyMessage = "🎉 Congratulations! Your key has been assigned:\n\n" +
	"🔑 Key: {key}\n" +
	"⏰ Duration: {duration}\n" +
	"📦 Product: {product}\n" +
	"🔗 Link: {link}"
