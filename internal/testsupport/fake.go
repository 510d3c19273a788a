// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

// Package testsupport writes fake ffmpeg/ffprobe executables for tests.
//
// The fake ffmpeg reports a 60 s input, prints two stats lines separated by
// \r and writes OutputSize bytes to its last argument. Inputs whose name
// contains "fail" exit with code 1 after the stats; "slow" inputs block
// until signalled. The fake ffprobe answers 200 frames for inputs and 150
// for "_converted" outputs, 0 for names containing "zero", garbage for
// "noframes" and exits 1 for "probefail". Only base names are matched.
package testsupport

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// OutputSize is the number of bytes the fake ffmpeg writes
const OutputSize = 400

const fakeFFmpeg = `#!/bin/sh
case "$1" in
-version)
	echo "ffmpeg version 6.1.1 Copyright (c) 2000-2023 the FFmpeg developers"
	echo "built with gcc 13"
	exit 0
	;;
-hide_banner)
	echo "Filters:"
	echo "  ..C = Command support"
	echo " ... mpdecimate        V->V       Remove near-duplicate frames."
	echo " T.C hue               V->V       Adjust the hue and saturation of the input video."
	exit 0
	;;
esac

in=""
out=""
prev=""
for a in "$@"; do
	if [ "$prev" = "-i" ]; then
		in="$a"
	fi
	prev="$a"
	out="$a"
done

name=$(basename "$in")

echo "Input #0, mov,mp4,m4a,3gp,3g2,mj2, from '$in':" >&2
echo "  Duration: 00:01:00.00, start: 0.000000, bitrate: 1205 kb/s" >&2

case "$name" in
*slow*)
	printf 'frame=   10 fps=0.0 q=-0.0 size=       0kB time=00:00:01.00 bitrate=N/A speed=1x\r' >&2
	exec sleep 30
	;;
esac

printf 'frame=  750 fps=250 q=-0.0 size=     256kB time=00:00:30.00 bitrate= 69.9kbits/s speed=10x\r' >&2
printf 'frame= 1500 fps=250 q=-0.0 Lsize=     400kB time=00:01:00.00 bitrate= 54.6kbits/s dup=0 drop=300 speed=10x\n' >&2

case "$name" in
*fail*)
	echo "Conversion failed!" >&2
	exit 1
	;;
esac

head -c 400 /dev/zero > "$out"
exit 0
`

const fakeFFprobe = `#!/bin/sh
path=""
for a in "$@"; do
	path="$a"
done

case "$(basename "$path")" in
*probefail*)
	echo "$path: Invalid data found when processing input" >&2
	exit 1
	;;
*noframes*)
	echo "N/A"
	;;
*zero*)
	echo "0"
	;;
*_converted*)
	echo "150"
	;;
*)
	echo "200"
	;;
esac
exit 0
`

// Tools holds the paths of the fake executables
type Tools struct {
	Dir     string
	FFmpeg  string
	FFprobe string
}

// WriteTools writes the fake executables into a fresh temp dir. Tests are
// skipped on platforms without /bin/sh.
func WriteTools(t testing.TB) Tools {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake tools need /bin/sh")
	}

	dir := t.TempDir()
	tools := Tools{
		Dir:     dir,
		FFmpeg:  filepath.Join(dir, "ffmpeg"),
		FFprobe: filepath.Join(dir, "ffprobe"),
	}
	writeScript(t, tools.FFmpeg, fakeFFmpeg)
	writeScript(t, tools.FFprobe, fakeFFprobe)
	return tools
}

// WriteScript writes an arbitrary executable shell script
func WriteScript(t testing.TB, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	writeScript(t, path, "#!/bin/sh\n"+body+"\n")
	return path
}

func writeScript(t testing.TB, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteInput creates an input file of the given size and returns its path
func WriteInput(t testing.TB, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
