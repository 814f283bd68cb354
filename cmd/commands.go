package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/xerrors"

	"github.com/moratsam/quantis-extractor/extractor"
	"github.com/moratsam/quantis-extractor/io"
	"github.com/moratsam/quantis-extractor/matrix"
	proc_unit "github.com/moratsam/quantis-extractor/pu"
	cl "github.com/moratsam/quantis-extractor/pu/opencl"
	vl "github.com/moratsam/quantis-extractor/pu/vanilla"
	"github.com/moratsam/quantis-extractor/seed"
	"github.com/moratsam/quantis-extractor/source"
	u "github.com/moratsam/quantis-extractor/util"
)

var (
	cfg_file	string

	root_cmd = &cobra.Command{
		Use:		"qext",
		Short:	"Extract uniform random bytes from a Quantis device.",
		Long:		`qext builds extractor matrices from device entropy and uses them
to post-process raw Quantis output into uniformly distributed bytes.`,
		SilenceUsage:	true,
		PersistentPreRunE:	func(cmd *cobra.Command, _ []string) error {
			if err := initConfig(); err != nil {
				return err
			}
			return setupLogging(viper.GetBool("quiet"), viper.GetInt("verbose"), cmd.Flags().Changed("verbose"))
		},
	}

	cmd_elementary = &cobra.Command{
		Use:		"elementary",
		Short:	"Create an elementary matrix from the raw device output",
		RunE:		func(cmd *cobra.Command, args []string) error {
			src, closer, err := openSource()
			if err != nil {
				return err
			}
			defer closer()
			n, k := viper.GetInt("n"), viper.GetInt("k")
			if err := seed.CreateElementary(src, n, k, viper.GetInt("period"), viper.GetString("out")); err != nil {
				return err
			}
			log.Infof("wrote %s elementary matrix to %s", humanize.Bytes(uint64(n*k/8)), viper.GetString("out"))
			return nil
		},
	}

	cmd_combine = &cobra.Command{
		Use:		"combine",
		Short:	"XOR elementary matrices into an extractor matrix",
		RunE:		func(cmd *cobra.Command, args []string) error {
			paths := viper.GetStringSlice("elementary")
			n, k := viper.GetInt("n"), viper.GetInt("k")
			if err := matrix.CheckDims(n, k); err != nil {
				return err
			}
			if err := seed.CreateMatrix(paths, n*k/8, viper.GetString("out")); err != nil {
				return err
			}
			log.Infof("combined %d elementary matrices into %s", len(paths), viper.GetString("out"))
			return nil
		},
	}

	cmd_extract = &cobra.Command{
		Use:		"extract",
		Short:	"Extract every whole block of a raw file",
		RunE:		func(cmd *cobra.Command, args []string) error {
			mat, err := loadMatrix()
			if err != nil {
				return err
			}
			in, out := viper.GetString("in"), viper.GetString("out")
			written, err := extractFile(viper.GetString("proc"), mat, in, out)
			if err != nil {
				return err
			}
			log.Infof("wrote %s to %s", humanize.Bytes(uint64(written)), out)
			return nil
		},
	}

	cmd_read = &cobra.Command{
		Use:		"read",
		Short:	"Read extracted bytes from the device",
		RunE:		func(cmd *cobra.Command, args []string) error {
			e, src, closer, err := newExtractor()
			if err != nil {
				return err
			}
			defer closer()
			data, err := e.GetData(src, viper.GetInt("bytes"))
			if err != nil {
				return err
			}
			if out := viper.GetString("out"); out != "" {
				return io.WriteFile(out, data)
			}
			fmt.Println(hex.EncodeToString(data))
			return nil
		},
	}

	cmd_scalar = &cobra.Command{
		Use:		"scalar",
		Short:	"Read extracted numbers from the device",
		RunE:		func(cmd *cobra.Command, args []string) error {
			e, src, closer, err := newExtractor()
			if err != nil {
				return err
			}
			defer closer()
			lo, hi := viper.GetFloat64("min"), viper.GetFloat64("max")
			scaled := cmd.Flags().Changed("min") || cmd.Flags().Changed("max")
			for i := 0; i < viper.GetInt("count"); i++ {
				v, err := readScalar(e, src, viper.GetString("type"), scaled, lo, hi)
				if err != nil {
					return err
				}
				fmt.Println(v)
			}
			return nil
		},
	}

	cmd_strerror = &cobra.Command{
		Use:		"strerror CODE",
		Short:	"Print the message of an error code",
		Args:		cobra.ExactArgs(1),
		RunE:		func(cmd *cobra.Command, args []string) error {
			var code int
			if _, err := fmt.Sscanf(args[0], "%d", &code); err != nil {
				return u.WrapErr("parse code", err)
			}
			fmt.Println(u.StrError(code))
			return nil
		},
	}
)

func extractFile(proc string, mat *matrix.Matrix, in, out string) (int, error) {
	switch proc {
	case "streamer":
		spu, err := cl.NewStreamerPU()
		if err != nil {
			return 0, err
		}
		defer spu.Release()
		return extractor.StreamExtractFile(spu, mat, in, out)
	case "vanilla-streamer":
		spu := vl.NewStreamerPU()
		defer spu.Release()
		return extractor.StreamExtractFile(spu, mat, in, out)
	default:
		pu, err := getPU(proc)
		if err != nil {
			return 0, err
		}
		defer pu.Release()
		return extractor.ExtractFile(pu, mat, in, out)
	}
}

func readScalar(e *extractor.Extractor, src source.Source, kind string, scaled bool, lo, hi float64) (interface{}, error) {
	switch kind {
	case "double":
		if scaled {
			return e.ReadScaledDouble(src, lo, hi)
		}
		return e.ReadDouble01(src)
	case "float":
		if scaled {
			return e.ReadScaledFloat(src, float32(lo), float32(hi))
		}
		return e.ReadFloat01(src)
	case "int":
		if scaled {
			return e.ReadScaledInt(src, int32(lo), int32(hi))
		}
		return e.ReadInt(src)
	case "short":
		if scaled {
			return e.ReadScaledShort(src, int16(lo), int16(hi))
		}
		return e.ReadShort(src)
	default:
		return nil, xerrors.Errorf("scalar type %q: %w", kind, u.ErrInvalidParameter)
	}
}

func getPU(proc string) (proc_unit.PU, error) {
	switch proc {
	case "opencl":
		return cl.NewOpenCLPU()
	case "vanilla":
		return vl.NewVanillaPU(), nil
	default:
		return nil, xerrors.Errorf("processor %q: %w", proc, u.ErrInvalidParameter)
	}
}

func loadMatrix() (*matrix.Matrix, error) {
	return matrix.Load(viper.GetString("matrix"), viper.GetInt("n"), viper.GetInt("k"))
}

// openSource opens --source if set, the Quantis device numbered --device otherwise.
func openSource() (source.Source, func(), error) {
	var (
		dev	*source.Device
		err	error
	)
	if path := viper.GetString("source"); path != "" {
		dev, err = source.OpenDevicePath(path)
	} else {
		dev, err = source.OpenDevice(viper.GetInt("device"))
	}
	if err != nil {
		return nil, nil, err
	}
	return dev, func() { dev.Close() }, nil
}

func newExtractor() (*extractor.Extractor, source.Source, func(), error) {
	mat, err := loadMatrix()
	if err != nil {
		return nil, nil, nil, err
	}
	pu, err := getPU(viper.GetString("proc"))
	if err != nil {
		return nil, nil, nil, err
	}
	e := extractor.New(pu, mat)
	if viper.GetBool("storage.enabled") {
		policy, err := extractor.ParseOverflowPolicy(viper.GetString("storage.overflow"))
		if err != nil {
			e.Release()
			return nil, nil, nil, err
		}
		e.EnableStorage(policy)
	}
	src, close_src, err := openSource()
	if err != nil {
		e.Release()
		return nil, nil, nil, err
	}
	closer := func() {
		close_src()
		e.Release()
	}
	return e, src, closer, nil
}

func initConfig() error {
	if cfg_file != "" {
		viper.SetConfigFile(cfg_file)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".qext")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("qext")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfg_file != "" {
			return u.WrapErr("read config", err)
		}
	} else {
		log.Debugf("using config file %s", viper.ConfigFileUsed())
	}
	return nil
}

func Execute() error {
	iit()
	return root_cmd.Execute()
}

func iit() {
	root_cmd.AddCommand(cmd_elementary, cmd_combine, cmd_extract, cmd_read, cmd_scalar, cmd_strerror)

	// Cmd Root
	pf := root_cmd.PersistentFlags()
	pf.StringVar(&cfg_file, "config", "", "Config file (default $HOME/.qext.yaml)")
	pf.IntP("verbose", "v", 1, "Verbosity level (0, 1, 2 or 3)")
	pf.BoolP("quiet", "q", false, "Only print errors")
	pf.Int("n", 1024, "Extractor input block size in bits")
	pf.Int("k", 768, "Extractor output block size in bits")
	pf.StringP("matrix", "m", "", "Extractor matrix file")
	pf.StringP("proc", "p", "vanilla", "Processor type (\"vanilla\", \"opencl\"; extract also takes \"streamer\" and \"vanilla-streamer\")")
	pf.IntP("device", "d", 0, "Quantis device number")
	pf.String("source", "", "Read raw bytes from this path instead of the Quantis device")
	pf.StringP("output", "o", "", "Output file")
	pf.Bool("storage", true, "Keep extraction surplus for later reads")
	pf.String("storage-overflow", "drop", "What to do with surplus beyond the storage capacity (\"drop\", \"error\")")
	for key, flag := range map[string]string{
		"verbose":				"verbose",
		"quiet":					"quiet",
		"n":						"n",
		"k":						"k",
		"matrix":				"matrix",
		"proc":					"proc",
		"device":				"device",
		"source":				"source",
		"out":					"output",
		"storage.enabled":	"storage",
		"storage.overflow":	"storage-overflow",
	} {
		viper.BindPFlag(key, pf.Lookup(flag))
	}

	// Cmd Elementary
	cmd_elementary.Flags().Int("period", seed.RecommendedPeriod, "Under-sampling period")
	viper.BindPFlag("period", cmd_elementary.Flags().Lookup("period"))

	// Cmd Combine
	cmd_combine.Flags().StringSlice("elementary", []string{}, "List of elementary matrix files")
	viper.BindPFlag("elementary", cmd_combine.Flags().Lookup("elementary"))
	cmd_combine.MarkFlagRequired("elementary")

	// Cmd Extract
	cmd_extract.Flags().StringP("input", "i", "", "Raw input file")
	viper.BindPFlag("in", cmd_extract.Flags().Lookup("input"))
	cmd_extract.MarkFlagRequired("input")

	// Cmd Read
	cmd_read.Flags().IntP("bytes", "b", 32, "Number of bytes to read")
	viper.BindPFlag("bytes", cmd_read.Flags().Lookup("bytes"))

	// Cmd Scalar
	cmd_scalar.Flags().StringP("type", "t", "double", "Scalar type (\"double\", \"float\", \"int\", \"short\")")
	cmd_scalar.Flags().Float64("min", 0, "Lower bound of the scaled range")
	cmd_scalar.Flags().Float64("max", 1, "Upper bound of the scaled range")
	cmd_scalar.Flags().IntP("count", "c", 1, "Number of values to read")
	for _, key := range []string{"type", "min", "max", "count"} {
		viper.BindPFlag(key, cmd_scalar.Flags().Lookup(key))
	}
}
