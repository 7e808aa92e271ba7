// =============================================================================
// madlibs 主入口
// =============================================================================
// 使用方法:
//
//	madlibs extract --schema person.json --prompt "..."   # 逐字段抽取
//	madlibs single  --schema person.json --prompt-file -  # 单次抽取
//	madlibs health  --config madlibs.yaml                 # 检查推理服务
//	madlibs version                                       # 显示版本信息
// =============================================================================

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run 执行子命令并返回进程退出码
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	var err error
	switch args[0] {
	case "extract":
		err = runExtract(args[1:], stdin, stdout, stderr)
	case "single":
		err = runSingle(args[1:], stdin, stdout, stderr)
	case "health":
		err = runHealth(args[1:], stdout, stderr)
	case "version":
		printVersion(stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return 1
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "madlibs %s\n", Version)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `madlibs - batched schema extraction over vLLM

Usage:
  madlibs <command> [options]

Commands:
  extract   Fill a JSON Schema field by field, print the JSON document
  single    Fill a JSON Schema with one generation, print the raw text
  health    Check that the vLLM server is up and serves the model
  version   Show version information
  help      Show this help message

Options for 'extract' and 'single':
  --config <path>          Path to configuration file (YAML)
  --schema <path>          JSON Schema file (required)
  --prompt <text>          Input text
  --prompt-file <path>     Read input text from file, '-' for stdin
  --template-file <path>   Prompt template file
  --model <id>             Model served by vLLM
  --base-url <url>         vLLM server URL
  --max-new-tokens <n>     Max tokens per generation
  --set name=value         Sampling parameter, repeatable (temperature=0.2)

Options for 'extract' only:
  --batch-size <n>         Fields per inference call
  --dag <path>             Field dependency graph (YAML)
  --constrained=false      Do not request constrained sampling

Environment:
  MADLIBS_<SECTION>_<KEY> overrides config, e.g. MADLIBS_ENGINE_MODEL

Examples:
  madlibs extract --schema person.json --prompt "Ada Lovelace, born 1815 in London"
  madlibs extract --config madlibs.yaml --schema s.json --prompt-file doc.txt --batch-size 8 --set temperature=0
  madlibs single --schema person.json --prompt-file - < doc.txt
  madlibs health --config madlibs.yaml`)
}
