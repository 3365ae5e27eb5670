// Package domain models the materialization of spectral indices for
// monitored agricultural fields.
//
// # Units of work
//
// One unit of work is a [PartitionKey]: a (date, field) pair. An external
// partitioned-execution substrate delivers keys with bounded concurrency;
// within a unit every step runs sequentially, and there is no ordering
// guarantee across units. Each unit terminates in exactly one [Outcome].
//
// # Fields
//
// A [Field] comes from an authoritative GeoJSON feature source. Feature
// properties follow the upstream convention:
//
//	object-type: "field"        selects field features
//	object-id:   opaque string  the field identity
//	plant-type:  e.g. "corn"
//	plant-date:  YYYY-MM-DD
//
// Geometries are polygons or multipolygons in EPSG:4326 at the boundary;
// the engine reprojects per band grid as needed.
//
// # Index kinds
//
// Two normalized-difference indices are materialized per unit:
//
//	NDVI (vegetation): (nir - red)  / (nir + red)   Sentinel-2 B08, B04
//	NDMI (moisture):   (nir - swir) / (nir + swir)  Sentinel-2 B08, B11/B12
//
// Band roles resolve to concrete scene assets through ordered preference
// lists, because different processing levels expose the same physical band
// under different asset names.
//
// # Outcome taxonomy
//
// Not-yet-planted is a skip (successful no-op), a day without a cloud-free
// scene is an expected business failure, and store or read errors are
// infrastructure failures. All three are structured [Outcome] values with a
// machine-checkable success flag; only configuration faults (a partition key
// naming an unknown field) are raised as errors.
package domain
