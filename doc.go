// Package holdings extracts accounts and holdings from web dashboards that
// expose no API, by reading the rendered pages through a browser Driver.
//
// The package holds the site independent engine:
//   - Amount parsing: locale formatted text to exact decimals (ParseAmount).
//   - Traversal: walking a paginated listing to completion, with a hard page
//     bound and per row failure isolation (Traversal).
//   - Aggregation: folding raw rows into a Snapshot where each label appears
//     once, plus a synthetic cash holding (Aggregator).
//   - Account building: the dashboard summary with per field defaults
//     (BuildAccount).
//
// Sites are described by a Site value holding their urls and extraction
// functions; see the aucoffre and bullionstar packages. The session package
// drives the login, and the scraper package ties everything together for a
// calling application.
package holdings
