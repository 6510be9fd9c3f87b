package main

import (
	"fmt"
	"strings"

	"github.com/common-nighthawk/go-figure"
	"github.com/urfave/cli/v2"

	"github.com/fxnlabs/gpuprim/internal/gpu"
)

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Show the selected compute device and kernel settings",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-banner", Usage: "Skip the banner"},
		},
		Action: func(c *cli.Context) error {
			cfg := appConfig(c)
			manager, err := newManager(cfg, appLogger(c))
			if err != nil {
				return err
			}
			defer manager.Cleanup()

			if !c.Bool("no-banner") {
				figure.NewFigure("gpuprim", "", true).Print()
				fmt.Println("")
			}
			fmt.Print(renderDeviceInfo(manager.GetDeviceInfo(), manager.IsGPUAvailable()))
			fmt.Println("-----------------------------------------------")
			k := cfg.Kernels
			fmt.Printf("Workgroup size:    %d\n", k.WorkgroupSize)
			fmt.Printf("Transpose tile:    %d\n", k.TransposeWorkgroupSize)
			fmt.Printf("Radix bits:        %d\n", k.RadixBits)
			fmt.Printf("Local presort:     %t\n", k.WithLocalSort)
			fmt.Printf("Items per thread:  %d\n", k.ItemsPerThread)
			fmt.Printf("Matmul tile:       %d\n", k.MatmulTile)
			return nil
		},
	}
}

func renderDeviceInfo(info gpu.DeviceInfo, accelerated bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Device:            %s\n", info.Name)
	fmt.Fprintf(&sb, "Backend:           %s", info.Backend)
	if !accelerated {
		sb.WriteString(" (no GPU in use)")
	}
	sb.WriteString("\n")
	if info.Vendor != "" {
		fmt.Fprintf(&sb, "Vendor:            %s\n", info.Vendor)
	}
	if info.DriverVersion != "" && info.DriverVersion != "N/A" {
		fmt.Fprintf(&sb, "Driver:            %s\n", info.DriverVersion)
	}
	fmt.Fprintf(&sb, "Compute units:     %d\n", info.ComputeUnits)
	fmt.Fprintf(&sb, "Max work-group:    %d\n", info.MaxWorkGroupSize)
	if info.GlobalMemory > 0 {
		fmt.Fprintf(&sb, "Global memory:     %d MB\n", info.GlobalMemory/(1024*1024))
	}
	if len(info.Features) > 0 {
		fmt.Fprintf(&sb, "Features:          %s\n", strings.Join(info.Features, " "))
	}
	return sb.String()
}
