// Package game 實作雙人合作射擊遊戲的模擬實體與遊戲會話。
//
// 座標系：x 為欄（0..Cols-1，向右遞增），y 為列（0..Rows-1，向下遞增），
// 玩家位於最底列。每個 tick 產生一個不可變的 Frame，供廣播共享讀取。
package game

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// 畫面尺寸在整個程序生命週期內固定
const (
	Cols = 40
	Rows = 20

	// Blank 空白格
	Blank = " "
)

// Frame 一個 tick 的渲染快照
//
// 建立後不再修改，多個廣播讀者以指標共享，不需複製也不需加鎖。
type Frame struct {
	cells [Rows][Cols]string
}

// NewFrame 建立全空白的畫面
func NewFrame() *Frame {
	f := &Frame{}
	for y := range f.cells {
		for x := range f.cells[y] {
			f.cells[y][x] = Blank
		}
	}
	return f
}

// FrameFromRows 由列資料建立畫面，尺寸與格子內容都會驗證
func FrameFromRows(rows [][]string) (*Frame, error) {
	if len(rows) != Rows {
		return nil, fmt.Errorf("frame has %d rows, want %d", len(rows), Rows)
	}
	f := &Frame{}
	for y, row := range rows {
		if len(row) != Cols {
			return nil, fmt.Errorf("frame row %d has %d cells, want %d", y, len(row), Cols)
		}
		for x, cell := range row {
			if utf8.RuneCountInString(cell) != 1 {
				return nil, fmt.Errorf("frame cell (%d,%d) is %q, want a single glyph", x, y, cell)
			}
			f.cells[y][x] = cell
		}
	}
	return f, nil
}

// At 回傳 (x, y) 的字元；越界回傳空字串
func (f *Frame) At(x, y int) string {
	if !inBounds(x, y) {
		return ""
	}
	return f.cells[y][x]
}

// Size 回傳 (欄數, 列數)
func (f *Frame) Size() (cols, rows int) {
	return Cols, Rows
}

// Rows 回傳畫面內容的副本
func (f *Frame) Rows() [][]string {
	out := make([][]string, Rows)
	for y := range f.cells {
		row := make([]string, Cols)
		copy(row, f.cells[y][:])
		out[y] = row
	}
	return out
}

// MarshalJSON 編碼為列陣列：[["x"," ",...],...]
func (f *Frame) MarshalJSON() ([]byte, error) {
	return json.Marshal(&f.cells)
}

// set 只在渲染期間使用
func (f *Frame) set(x, y int, glyph string) {
	if inBounds(x, y) {
		f.cells[y][x] = glyph
	}
}

// Drawable 可渲染到畫面的實體
type Drawable interface {
	Draw(f *Frame)
}

func inBounds(x, y int) bool {
	return x >= 0 && x < Cols && y >= 0 && y < Rows
}
