// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

/*
Package typeinfo contains the reflection code of sqlquery. It extracts the
"db" tags of struct types and decodes result rows into values of those types.
As much as possible, reflection code is limited to this package.
*/
package typeinfo
