// Package catalog defines the catalog data model shared by every other
// package: entries (thin or full), filter criteria, sort specifications,
// the static legendary/mythical reference sets and the Catalog interface
// that remote data access implementations satisfy.
//
// Entries carry the API's native units: Height in decimetres and Weight in
// hectograms. Filter ranges are expressed in metres and kilograms, so the
// range predicates divide by ten before comparing.
package catalog
