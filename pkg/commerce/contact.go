package commerce

import (
	"fmt"
	"strings"
)

const maxRating = 5

type ContactCard struct {
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	WhatsApp string `json:"whatsapp,omitempty"`
	Email    string `json:"email,omitempty"`
	Rating   int    `json:"rating"`
}

// Format renders the contact block given to the customer.
func (c ContactCard) Format() string {
	var b strings.Builder
	b.WriteString("📞 **Contactez notre équipe commerciale**\n")
	fmt.Fprintf(&b, "👤 %s", c.Name)
	if stars := c.stars(); stars != "" {
		fmt.Fprintf(&b, " %s", stars)
	}
	if c.Phone != "" {
		fmt.Fprintf(&b, "\n☎️ Téléphone : %s", c.Phone)
	}
	if c.WhatsApp != "" {
		fmt.Fprintf(&b, "\n💬 WhatsApp : %s", c.WhatsApp)
	}
	if c.Email != "" {
		fmt.Fprintf(&b, "\n✉️ Email : %s", c.Email)
	}
	return b.String()
}

func (c ContactCard) stars() string {
	r := c.Rating
	if r <= 0 {
		return ""
	}
	if r > maxRating {
		r = maxRating
	}
	return strings.Repeat("★", r) + strings.Repeat("☆", maxRating-r)
}
