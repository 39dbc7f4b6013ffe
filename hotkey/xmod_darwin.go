package hotkey

import "golang.design/x/hotkey"

const altMod = hotkey.ModOption
