// Package models contains the GORM persistence models for the purchasing
// tables. Domain types stay free of ORM concerns; each model converts to and
// from its domain type with ToDomain and a FromDomain constructor.
package models
