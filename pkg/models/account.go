package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType enumerates the kinds of accounts we track.
type AccountType string

const (
	AccountChecking       AccountType = "checking"
	AccountSavings        AccountType = "savings"
	AccountBroker         AccountType = "broker"
	AccountIRARoth        AccountType = "ira-roth"
	AccountIRATraditional AccountType = "ira-traditional"
	AccountCrypto         AccountType = "crypto"
	AccountLoan           AccountType = "loan"
	AccountLineOfCredit   AccountType = "line-of-credit"
	AccountCredit         AccountType = "credit"
)

var accountTypes = map[AccountType]struct{}{
	AccountChecking:       {},
	AccountSavings:        {},
	AccountBroker:         {},
	AccountIRARoth:        {},
	AccountIRATraditional: {},
	AccountCrypto:         {},
	AccountLoan:           {},
	AccountLineOfCredit:   {},
	AccountCredit:         {},
}

// InterestStrategy selects how interest is applied to an account.
type InterestStrategy string

const (
	InterestSimple   InterestStrategy = "simple"
	InterestCompound InterestStrategy = "compound"
)

// Account references an institution and logically owns its transactions by
// id. Transactions are queried from the store, never held here.
type Account struct {
	ID               string
	InstitutionID    string
	Name             string
	Description      string
	Number           string
	Routing          string
	InterestRate     *decimal.Decimal
	InterestStrategy InterestStrategy
	AccountType      AccountType
}

// NewAccount builds an account with a generated id.
func NewAccount(name, institutionID string, kind AccountType) *Account {
	return &Account{
		ID:               uuid.NewString(),
		InstitutionID:    institutionID,
		Name:             name,
		InterestStrategy: InterestSimple,
		AccountType:      kind,
	}
}

// Validate checks the enum fields.
func (a *Account) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("account missing id")
	}
	if _, ok := accountTypes[a.AccountType]; !ok {
		return fmt.Errorf("unknown account type %q", a.AccountType)
	}
	if a.InterestStrategy != InterestSimple && a.InterestStrategy != InterestCompound {
		return fmt.Errorf("unknown interest strategy %q", a.InterestStrategy)
	}
	return nil
}

type accountJSON struct {
	ID               string       `json:"id"`
	InstitutionID    string       `json:"institutionId"`
	Name             string       `json:"name"`
	Description      string       `json:"description"`
	Number           string       `json:"number"`
	Routing          string       `json:"routing"`
	InterestRate     *json.Number `json:"interestRate,omitempty"`
	InterestStrategy string       `json:"interestStrategy"`
	AccountType      string       `json:"accountType"`
}

func (a Account) MarshalJSON() ([]byte, error) {
	var rate *json.Number
	if a.InterestRate != nil {
		n := json.Number(a.InterestRate.String())
		rate = &n
	}
	return json.Marshal(accountJSON{
		ID:               a.ID,
		InstitutionID:    a.InstitutionID,
		Name:             a.Name,
		Description:      a.Description,
		Number:           a.Number,
		Routing:          a.Routing,
		InterestRate:     rate,
		InterestStrategy: string(a.InterestStrategy),
		AccountType:      string(a.AccountType),
	})
}

func (a *Account) UnmarshalJSON(data []byte) error {
	var wire accountJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	a.ID = wire.ID
	a.InstitutionID = wire.InstitutionID
	a.Name = wire.Name
	a.Description = wire.Description
	a.Number = wire.Number
	a.Routing = wire.Routing
	a.InterestStrategy = InterestStrategy(wire.InterestStrategy)
	a.AccountType = AccountType(wire.AccountType)
	a.InterestRate = nil
	// Only set when explicitly present. A present zero is still a rate.
	if wire.InterestRate != nil {
		rate, err := decimal.NewFromString(wire.InterestRate.String())
		if err != nil {
			return fmt.Errorf("invalid interest rate %q: %w", *wire.InterestRate, err)
		}
		a.InterestRate = &rate
	}
	return nil
}
