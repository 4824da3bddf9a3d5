// Package core provides the business logic for the student records
// dashboard. It has no UI or transport dependencies and is shared by the web
// server and the admin CLI.
//
// # Records
//
// A [StudentRecord] has six text columns in a fixed order: name, class,
// phone number, school name, state and district. [StudentRecord.Fields]
// returns them in that order, which is also the column order of every file
// format.
//
// # Files
//
// [Parse] and [Encode] handle delimited text in two dialects.
// [DialectRFC4180] quotes fields that contain commas, quotes or newlines.
// [DialectLegacy] joins and splits on bare commas and is kept for files
// produced by older exports. [ParseXLSX] and [WriteXLSX] read and write the
// same columns as an Excel workbook.
//
// On import the first line is always a header and is skipped. Rows without a
// name are dropped. Uploads pass through [WrapForImport], which strips a
// UTF-8 byte order mark and replaces invalid UTF-8.
//
// # Service
//
// [Service] is the entry point for student operations. Every call asks its
// [Authorizer] first: listing, filtering and export need a session, while
// adding, removing and importing need an admin. A refused call never
// reaches the store.
//
// Imports are bounded by an [ImportLimiter] so a burst of uploads cannot
// exhaust the store's connections.
//
// # Errors
//
// Failures are reported with sentinel errors such as [ErrUnauthorized] and
// [ErrMalformedInput], and with [*StoreError] and [*ValidationError].
// [MapError] turns any of them into a [UserMessage] with a support code:
//
//   - AUTH001-AUTH003: login and session
//   - ACC001-ACC003: account management
//   - CSV001-CSV004: file import
//   - STU001-STU002: student input
//   - DB001-DB003: record store and request lifetime
package core
