// sweeper tareas periódicas de facturación contra PostgreSQL:
// marcar vencidas, liberar aprobaciones huérfanas y emitir tokens de administración para desarrollo.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
