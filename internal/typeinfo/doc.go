// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

/*
Package typeinfo contains the reflection code of sqlcraft. It turns structs
with "db" field tags into ordered rows of column names and values, so that a
struct can be inserted or used as the SET of an update. As much as possible,
reflection over user types is limited to this package.
*/
package typeinfo
