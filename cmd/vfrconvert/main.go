// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package main

func main() {
	Execute()
}
