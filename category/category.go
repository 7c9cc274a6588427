// Package category is the closed registry of Eco-Seed earning and spending
// sources.
//
// Every ledger entry is tagged with exactly one Category. The registry is a
// lookup table built once at init; adding a source means adding a row here,
// never passing ad-hoc strings through the ledger.
package category

import (
	"errors"
	"fmt"
	"strings"
)

// Category is the code of a registered earning or spending source.
type Category string

// Registered categories.
const (
	DailyQuiz           Category = "DAILY_QUIZ"
	Walking             Category = "WALKING"
	ElectronicReceipt   Category = "ELECTRONIC_RECEIPT"
	EcoChallenge        Category = "ECO_CHALLENGE"
	EcoMerchant         Category = "ECO_MERCHANT"
	TeamChallenge       Category = "TEAM_CHALLENGE"
	HanaMoneyConversion Category = "HANA_MONEY_CONVERSION"
	EnvironmentDonation Category = "ENVIRONMENT_DONATION"
)

// Side says which balance-mutation path may use a category.
type Side string

const (
	SideEarn    Side = "earn"
	SideUse     Side = "use"
	SideConvert Side = "convert"
)

// ErrUnknown is returned when a code is not in the registry.
var ErrUnknown = errors.New("category: unknown category")

// Info is the presentation metadata of a category.
type Info struct {
	Code  Category `json:"code"`
	Label string   `json:"label"`
	Image string   `json:"image"`
	Side  Side     `json:"side"`
}

var registry = []Info{
	{Code: DailyQuiz, Label: "Daily Quiz", Image: "/assets/hana3dIcon/hanaIcon3d_3_103.png", Side: SideEarn},
	{Code: Walking, Label: "Walking", Image: "/assets/hana3dIcon/hanaIcon3d_123.png", Side: SideEarn},
	{Code: ElectronicReceipt, Label: "Electronic Receipt", Image: "/assets/hana3dIcon/hanaIcon3d_4_13.png", Side: SideEarn},
	{Code: EcoChallenge, Label: "Eco Challenge", Image: "/assets/hana3dIcon/hanaIcon3d_103.png", Side: SideEarn},
	{Code: EcoMerchant, Label: "Eco-Friendly Merchant", Image: "/assets/hana3dIcon/hanaIcon3d_85.png", Side: SideEarn},
	{Code: TeamChallenge, Label: "Team Challenge", Image: "/assets/green_team.png", Side: SideEarn},
	{Code: HanaMoneyConversion, Label: "Hana Money Conversion", Image: "/assets/hanamoney_logo.png", Side: SideConvert},
	{Code: EnvironmentDonation, Label: "Environment Donation", Image: "/assets/sprout.png", Side: SideUse},
}

var byCode = func() map[Category]Info {
	m := make(map[Category]Info, len(registry))
	for _, info := range registry {
		m[info.Code] = info
	}
	return m
}()

// Lookup returns the metadata for c.
func Lookup(c Category) (Info, bool) {
	info, ok := byCode[c]
	return info, ok
}

// Parse resolves a code case-insensitively.
func Parse(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := byCode[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknown, s)
	}
	return c, nil
}

// All returns every registered category in registry order.
func All() []Info {
	out := make([]Info, len(registry))
	copy(out, registry)
	return out
}

// Valid reports whether c is registered.
func (c Category) Valid() bool {
	_, ok := byCode[c]
	return ok
}

// Label returns the display label, or the raw code for unknown categories.
func (c Category) Label() string {
	if info, ok := byCode[c]; ok {
		return info.Label
	}
	return string(c)
}

// Image returns the badge image reference.
func (c Category) Image() string {
	return byCode[c].Image
}

// Side returns the mutation path the category belongs to.
func (c Category) Side() Side {
	return byCode[c].Side
}

// AllowsEarn reports whether c may tag an EARN entry.
func (c Category) AllowsEarn() bool { return c.Side() == SideEarn }

// AllowsUse reports whether c may tag a USE entry.
func (c Category) AllowsUse() bool { return c.Side() == SideUse }

func (c Category) String() string { return string(c) }
