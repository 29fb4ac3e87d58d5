// Package models contains GORM persistence models that map to database tables.
// Domain entities stay free of ORM tags. Each model has a ToDomain method and
// an <Model>FromDomain constructor, and repositories only ever touch models.
//
//   - base.go: BaseModel and AggregateModel (version column for optimistic locking)
//   - json.go: JSON column type for jsonb attributes, metadata and snapshots
//   - catalog.go: categories, products, variants, product/category links
//   - identity.go: users, delivery addresses, payment methods
//   - sales.go: cart items, orders, order items, status history
//   - billing.go: invoices, proforma invoices, company settings
//   - supplier.go: suppliers and supplier products
//   - outbox.go: transactional outbox entries
package models
