// Package integration contains the Integration bounded context.
// This context manages connections to external financial providers.
//
// Key concepts:
//   - ConnectionItem: a tenant's link to one provider connection, holding the sealed credential
//   - AccountAggregationClient: port for a bank-data aggregator (link, accounts, transactions)
//   - PaymentProcessorClient: port for a payment processor (customers, subscriptions, invoices, charges)
//   - Customer, Subscription, Invoice, Payment: processor records mirrored locally
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
