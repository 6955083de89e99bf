// Package all imports all jurisdiction scrapers for side-effect registration.
//
// Import this package from your main to ensure all scrapers are registered:
//
//	import _ "github.com/Vodeneev/scratchiq/internal/scraper/scrapers/all"
package all

import (
	_ "github.com/Vodeneev/scratchiq/internal/scraper/scrapers/md"
	_ "github.com/Vodeneev/scratchiq/internal/scraper/scrapers/nc"
	_ "github.com/Vodeneev/scratchiq/internal/scraper/scrapers/pa"
)
