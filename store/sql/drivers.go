package sqlstore

// Postgres is the production dialect; the driver registers itself on import.
import _ "github.com/lib/pq"
