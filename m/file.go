package m

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Line is one training example: a feature row and its encoded target.
type Line struct {
	Inputs  []float64
	Targets []float64
}
type Lines []Line

// Encoder maps a raw rating to the target vector the network is trained on.
type Encoder interface {
	Encode(rating float64) []float64
}

// GetLines reads comma separated rows of inputNum features followed by a
// single rating column. Blank lines and lines starting with '#' are skipped.
func GetLines(reader io.Reader, inputNum int, enc Encoder) (Lines, error) {
	scanner := bufio.NewScanner(reader)
	var lines Lines
	var lineNum int
	for scanner.Scan() {
		lineNum++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		splits := strings.Split(text, ",")
		if len(splits) != inputNum+1 {
			return lines, errInvalidLine{
				lineNum:  lineNum,
				splits:   len(splits),
				expected: inputNum + 1,
			}
		}
		inputs := make([]float64, inputNum)
		for i, split := range splits[:inputNum] {
			num, err := strconv.ParseFloat(strings.TrimSpace(split), 64)
			if err != nil {
				return lines, fmt.Errorf("line %d: parsing input: %w", lineNum, err)
			}
			inputs[i] = num
		}
		rating, err := strconv.ParseFloat(strings.TrimSpace(splits[inputNum]), 64)
		if err != nil {
			return lines, fmt.Errorf("line %d: parsing rating: %w", lineNum, err)
		}
		lines = append(lines, Line{
			Inputs:  inputs,
			Targets: enc.Encode(rating),
		})
	}
	if err := scanner.Err(); err != nil {
		return lines, fmt.Errorf("reading lines: %w", err)
	}
	return lines, nil
}

type errInvalidLine struct {
	lineNum  int
	splits   int
	expected int
}

func (e errInvalidLine) Error() string {
	return fmt.Sprintf("at line %d, expected %d values, got %d",
		e.lineNum, e.expected, e.splits)
}

// Split partitions lines into the first n examples and the rest. n is
// clamped to [0, len(lines)].
func Split(lines Lines, n int) (Lines, Lines) {
	if n < 0 {
		n = 0
	}
	if n > len(lines) {
		n = len(lines)
	}
	return lines[:n], lines[n:]
}

// NormalizeLines returns a copy of lines with every input column shifted by
// mean and divided by std. Targets are shared with lines.
func NormalizeLines(lines Lines, std []float64, mean []float64) Lines {
	if lines == nil {
		return nil
	}
	normalized := make(Lines, len(lines))
	for i, line := range lines {
		inputs := make([]float64, len(line.Inputs))
		for j, x := range line.Inputs {
			inputs[j] = (x - mean[j]) / std[j]
		}
		normalized[i] = Line{
			Inputs:  inputs,
			Targets: line.Targets,
		}
	}
	return normalized
}

// CalculateMean returns the per-column mean of the inputs, or nil for no
// lines.
func CalculateMean(lines Lines) []float64 {
	mean, _ := columnStats(lines)
	return mean
}

// CalculateStdDev returns the per-column population standard deviation of
// the inputs. A constant column reports 1 so NormalizeLines leaves it
// centred instead of dividing by zero.
func CalculateStdDev(lines Lines) []float64 {
	_, std := columnStats(lines)
	return std
}

func columnStats(lines Lines) (mean, std []float64) {
	if len(lines) == 0 {
		return nil, nil
	}
	n := len(lines[0].Inputs)
	mean = make([]float64, n)
	std = make([]float64, n)
	col := make([]float64, len(lines))
	for j := 0; j < n; j++ {
		for i, line := range lines {
			col[i] = line.Inputs[j]
		}
		mean[j], std[j] = stat.PopMeanStdDev(col, nil)
		if std[j] == 0 {
			std[j] = 1
		}
	}
	return mean, std
}
