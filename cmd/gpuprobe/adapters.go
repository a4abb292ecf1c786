package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/gpuapi"
)

var adaptersCmd = &cobra.Command{
	Use:   "adapters",
	Short: "List the adapters of the selected backend",
	Long: `List every adapter the selected backend exposes, with its type,
features and the main limits.`,
	Args: cobra.NoArgs,
	RunE: runAdapters,
}

func init() {
	adaptersCmd.Flags().Bool("limits", false, "print every limit")
	rootCmd.AddCommand(adaptersCmd)
}

func runAdapters(cmd *cobra.Command, _ []string) error {
	all, _ := cmd.Flags().GetBool("limits")

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	adapters := s.inst.EnumerateAdapters()
	fmt.Fprintf(out, "backend %s: %d adapter(s)\n", s.inst.Backend(), len(adapters))
	for i, a := range adapters {
		printAdapter(out, i, a, all)
		a.Release()
	}
	return nil
}

func printAdapter(w io.Writer, index int, a *gpuapi.Adapter, all bool) {
	p := message.NewPrinter(language.English)
	info := a.Info()
	p.Fprintf(w, "\n[%d] %s\n", index, info.Name)
	p.Fprintf(w, "    type:     %s\n", info.DeviceType)
	p.Fprintf(w, "    backend:  %s\n", info.Backend)
	if info.Driver != "" {
		p.Fprintf(w, "    driver:   %s %s\n", info.Driver, info.DriverInfo)
	}
	p.Fprintf(w, "    features: %#x\n", uint64(a.Features()))

	l := a.Limits()
	p.Fprintf(w, "    max texture 2D:       %d\n", l.MaxTextureDimension2D)
	p.Fprintf(w, "    max buffer size:      %d bytes\n", l.MaxBufferSize)
	p.Fprintf(w, "    max bind groups:      %d\n", l.MaxBindGroups)
	if !all {
		return
	}
	p.Fprintf(w, "    max texture 1D:       %d\n", l.MaxTextureDimension1D)
	p.Fprintf(w, "    max texture 3D:       %d\n", l.MaxTextureDimension3D)
	p.Fprintf(w, "    max array layers:     %d\n", l.MaxTextureArrayLayers)
	p.Fprintf(w, "    max uniform binding:  %d bytes\n", l.MaxUniformBufferBindingSize)
	p.Fprintf(w, "    max storage binding:  %d bytes\n", l.MaxStorageBufferBindingSize)
	p.Fprintf(w, "    max vertex buffers:   %d\n", l.MaxVertexBuffers)
	p.Fprintf(w, "    max vertex attribs:   %d\n", l.MaxVertexAttributes)
	p.Fprintf(w, "    max push constants:   %d bytes\n", l.MaxPushConstantSize)
	p.Fprintf(w, "    max workgroup size:   %d x %d x %d\n", l.MaxComputeWorkgroupSizeX, l.MaxComputeWorkgroupSizeY, l.MaxComputeWorkgroupSizeZ)
	p.Fprintf(w, "    max workgroups/dim:   %d\n", l.MaxComputeWorkgroupsPerDimension)
}
