package domain

// Settings keys.
const (
	SettingsKeyCategories = "categories"
	SettingsKeyStore      = "store"
)

// Category is a storefront category tile.
type Category struct {
	ID    string `json:"id" validate:"required"`
	Label string `json:"label" validate:"required"`
	Emoji string `json:"emoji"`
	Color string `json:"color"`
}

// StoreProfile is the public store configuration.
type StoreProfile struct {
	Name           string  `json:"name"`
	LogoText       string  `json:"logo_text"`
	LogoURL        *string `json:"logo_url"`
	Description    string  `json:"description"`
	WhatsApp       string  `json:"whatsapp"`
	WelcomeMessage string  `json:"welcome_message"`
}

// StorePatch carries the store fields to overwrite. Nil fields are kept.
type StorePatch struct {
	Name           *string `json:"name,omitempty"`
	LogoText       *string `json:"logo_text,omitempty"`
	LogoURL        *string `json:"logo_url,omitempty"`
	Description    *string `json:"description,omitempty"`
	WhatsApp       *string `json:"whatsapp,omitempty"`
	WelcomeMessage *string `json:"welcome_message,omitempty"`
}

// Apply merges the patch into profile.
func (p StorePatch) Apply(profile *StoreProfile) {
	if p.Name != nil {
		profile.Name = *p.Name
	}
	if p.LogoText != nil {
		profile.LogoText = *p.LogoText
	}
	if p.LogoURL != nil {
		url := *p.LogoURL
		profile.LogoURL = &url
	}
	if p.Description != nil {
		profile.Description = *p.Description
	}
	if p.WhatsApp != nil {
		profile.WhatsApp = *p.WhatsApp
	}
	if p.WelcomeMessage != nil {
		profile.WelcomeMessage = *p.WelcomeMessage
	}
}

// DefaultCategories is served until a moderator saves categories.
func DefaultCategories() []Category {
	return []Category{
		{ID: "smartphones", Label: "Smartphones", Emoji: "📱", Color: "#00d4ff"},
		{ID: "laptops", Label: "Laptops", Emoji: "💻", Color: "#7c3aed"},
		{ID: "gaming", Label: "Gaming", Emoji: "🎮", Color: "#ff6b35"},
		{ID: "audio", Label: "Audio", Emoji: "🎧", Color: "#00ff88"},
		{ID: "cameras", Label: "Cámaras", Emoji: "📷", Color: "#f59e0b"},
		{ID: "components", Label: "Componentes", Emoji: "🔌", Color: "#ec4899"},
	}
}

// DefaultStoreProfile is served until a moderator saves the store profile.
func DefaultStoreProfile() StoreProfile {
	return StoreProfile{
		Name:           "TechStore",
		LogoText:       "TECHSTORE",
		Description:    "Tu tienda tech de confianza. Smartphones, laptops, gaming y más.",
		WhatsApp:       "913340613",
		WelcomeMessage: "¡Hola! 👋 Bienvenido a TechStore. ¿En qué puedo ayudarte hoy?",
	}
}
