// Package scan orchestrates a survey run: it expands requested resource
// types to their dependency closure, runs each type's fetch exactly once
// across every applicable account and region, and seals the results.
package scan

import (
	"fmt"

	"github.com/yairfalse/kartta/fetch"
	"github.com/yairfalse/kartta/survey"
)

// Context is one place a fetch can run: an account, a region, and a
// service client bound to both.
type Context struct {
	// Name identifies the context in logs and errors,
	// "account:region:service".
	Name      string
	AccountID string
	Region    string
	Service   string

	// First marks the account's first configured region. Global
	// resource types are fetched only in first-region contexts so each
	// account is surveyed once.
	First bool

	Client fetch.Client
}

// NewContext builds a context with its canonical name.
func NewContext(accountID, region, service string, first bool, client fetch.Client) *Context {
	return &Context{
		Name:      fmt.Sprintf("%s:%s:%s", accountID, region, service),
		AccountID: accountID,
		Region:    region,
		Service:   service,
		First:     first,
		Client:    client,
	}
}

// Info returns the context descriptor recorded on surveyed resources.
func (c *Context) Info() survey.ContextInfo {
	return survey.ContextInfo{
		Name:      c.Name,
		AccountID: c.AccountID,
		Region:    c.Region,
		Service:   c.Service,
	}
}
