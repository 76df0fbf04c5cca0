/*
Package config loads, validates and persists the WindSend configuration.

The file is YAML. A missing file is replaced by a generated default with a
fresh random secret. Store is the single owner of the active config: reads
return deep copies, and Replace only swaps in a new config after it passed
Validate, was applied to the auto-start and language collaborators, and was
written to disk.

Features and Paths hold the per-build and per-platform differences (headless
mode, macOS locations) as plain values chosen at startup.
*/
package config
