// =============================================================================
// SAF-T PT Generator - Main Entry Point
// =============================================================================
//
// USAGE:
//   saft process    - Ingest the input directory and generate the SAF-T file
//   saft validate   - Validate SAF-T files against the XSD
//   saft fields     - List mappable fields or write an XLSX template
//   saft demo       - Generate a SAF-T file from demo data
//   saft version    - Display the application version
//
// ARCHITECTURE:
//   - cmd/        : CLI command definitions (Cobra)
//   - internal/   : Domain model, mapping, storage, generation, validation
//   - pkg/utils/  : File discovery, archiving and run logs
//   - profiles/   : Mapping profiles
//
// =============================================================================

package main

import (
	"github.com/LosLebos/SAFT-T-Portugal/cmd"
)

func main() {
	cmd.Execute()
}
