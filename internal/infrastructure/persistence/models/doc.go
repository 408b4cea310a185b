// Package models contains GORM persistence models for the invoicing tables.
// They are kept separate from the domain types so the domain layer stays
// free of ORM tags; each model converts with ToDomain and FromDomain.
package models
