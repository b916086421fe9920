// Package schemas embeds the JSON schemas for factor-set documents and
// the events exchanged over RabbitMQ.
package schemas

import "embed"

//go:embed cost-factors events
var SchemasFS embed.FS
