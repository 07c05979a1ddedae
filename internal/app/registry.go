package app

import (
	"fmt"

	"github.com/benchline-erp/benchline/internal/accounts"
	"github.com/benchline-erp/benchline/internal/consol"
	"github.com/benchline-erp/benchline/internal/fx"
	"github.com/benchline-erp/benchline/internal/inventory"
	"github.com/benchline-erp/benchline/internal/invoicing"
	"github.com/benchline-erp/benchline/internal/ledger"
	"github.com/benchline-erp/benchline/internal/payments"
	"github.com/benchline-erp/benchline/internal/sale"
)

// ServiceRegistry is the composed service set the binary wires once at
// startup. Modules that call each other in-process, the sale orchestrator in
// particular, receive their collaborators from here rather than constructing
// them ad hoc.
type ServiceRegistry struct {
	Accounts  *accounts.Directory
	Rates     *fx.Resolver
	Ledger    *ledger.Service
	Consol    *consol.Service
	Inventory *inventory.Service
	Invoicing *invoicing.Service
	Payments  *payments.Service
	Sale      *sale.Service
}

// Ready reports whether every service is wired. Readiness probes use it to
// catch partial startup wiring before traffic arrives.
func (reg *ServiceRegistry) Ready() error {
	if reg == nil {
		return fmt.Errorf("app: service registry not wired")
	}
	checks := []struct {
		name  string
		wired bool
	}{
		{"accounts", reg.Accounts != nil},
		{"fx", reg.Rates != nil},
		{"ledger", reg.Ledger != nil},
		{"consol", reg.Consol != nil},
		{"inventory", reg.Inventory != nil},
		{"invoicing", reg.Invoicing != nil},
		{"payments", reg.Payments != nil},
		{"sale", reg.Sale != nil},
	}
	for _, check := range checks {
		if !check.wired {
			return fmt.Errorf("app: %s service not wired", check.name)
		}
	}
	return nil
}
