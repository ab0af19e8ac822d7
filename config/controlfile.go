package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// keySpec binds one control-file key to the setter that applies its
// value to a Settings record.
type keySpec struct {
	set func(*Settings, string) error
}

func boolKey(dst *bool) func(*Settings, string) error {
	return func(_ *Settings, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst = b
		return nil
	}
}

func floatKey(dst *float64) func(*Settings, string) error {
	return func(_ *Settings, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst = f
		return nil
	}
}

func intKey(dst *int) func(*Settings, string) error {
	return func(_ *Settings, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func int64Key(dst *int64) func(*Settings, string) error {
	return func(_ *Settings, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func stringKey(dst *string) func(*Settings, string) error {
	return func(_ *Settings, v string) error {
		*dst = v
		return nil
	}
}

// buildRegistry binds every recognised control-file key (spec.md §6's
// table) to the Settings field it fills. Keyed by lowercase name so
// lookups are case-insensitive the way BAMM's original control files
// are read.
func buildRegistry(s *Settings) map[string]keySpec {
	reg := map[string]keySpec{
		"modeltype": {func(s *Settings, v string) error {
			switch strings.ToLower(v) {
			case "speciationextinction", "diversification":
				s.ModelType = Diversification
			case "trait":
				s.ModelType = Trait
			default:
				return fmt.Errorf("unrecognised modeltype %q", v)
			}
			return nil
		}},
		"treefile":                   {stringKey(&s.TreeFile)},
		"traitfile":                  {stringKey(&s.TraitFile)},
		"sampleprobsfilename":        {stringKey(&s.SampleProbsFilename)},
		"globalsamplingfraction":     {floatKey(&s.GlobalSamplingFrac)},
		"useglobalsamplingprobability": {boolKey(&s.UseGlobalSamplingPct)},
		"numbergenerations":          {int64Key(&s.NumberGenerations)},
		"seed":                       {int64Key(&s.Seed)},
		"poissonrateprior":           {floatKey(&s.PoissonRatePrior)},
		"lambdainitprior":            {floatKey(&s.LambdaInitPrior)},
		"lambdashiftprior":           {floatKey(&s.LambdaShiftPrior)},
		"muinitprior":                {floatKey(&s.MuInitPrior)},
		"mushiftprior":               {floatKey(&s.MuShiftPrior)},
		"betainitprior":              {floatKey(&s.BetaInitPrior)},
		"betashiftprior":             {floatKey(&s.BetaShiftPrior)},
		"lambdainit0":                {floatKey(&s.LambdaInit0)},
		"lambdashift0":               {floatKey(&s.LambdaShift0)},
		"muinit0":                    {floatKey(&s.MuInit0)},
		"mushift0":                   {floatKey(&s.MuShift0)},
		"betainit":                   {floatKey(&s.BetaInit)},
		"betashiftinit":              {floatKey(&s.BetaShiftInit)},
		"updateeventlocationscale":   {floatKey(&s.UpdateEventLocationScale)},
		"updateeventratescale":       {floatKey(&s.UpdateEventRateScale)},
		"updatelambdainitscale":      {floatKey(&s.UpdateLambdaInitScale)},
		"updatelambdashiftscale":     {floatKey(&s.UpdateLambdaShiftScale)},
		"updatemuinitscale":          {floatKey(&s.UpdateMuInitScale)},
		"updatemushiftscale":         {floatKey(&s.UpdateMuShiftScale)},
		"updatebetascale":            {floatKey(&s.UpdateBetaScale)},
		"updatebetashiftscale":       {floatKey(&s.UpdateBetaShiftScale)},
		"updatenodestatescale":       {floatKey(&s.UpdateNodeStateScale)},
		"localglobalmoveratio":       {floatKey(&s.LocalGlobalMoveRatio)},
		"seglength":                  {floatKey(&s.SegLength)},
		"initialnumberevents":        {intKey(&s.InitialNumberEvents)},
		"loadeventdata":              {boolKey(&s.LoadEventData)},
		"eventdatainfile":            {stringKey(&s.EventDataInfile)},
		"mincladesizeforshift":       {intKey(&s.MinCladeSizeForShift)},
		"samplefromprioronly":        {boolKey(&s.SampleFromPriorOnly)},
		"conditiononsurvival":        {boolKey(&s.ConditionOnSurvival)},
		"useadaptiveregimedraw":      {boolKey(&s.AdaptiveRegimeDraw)},
		"mcmcwritefreq":              {int64Key(&s.MCMCWriteFreq)},
		"eventdatawritefreq":         {int64Key(&s.EventDataWriteFreq)},
		"printfreq":                  {int64Key(&s.PrintFreq)},
		"acceptwritefreq":            {int64Key(&s.AcceptWriteFreq)},
		"branchrateswritefreq":       {int64Key(&s.BranchRatesWriteFreq)},
		"outname":                    {stringKey(&s.OutName)},
		"mcmcoutfile":                {stringKey(&s.MCMCOutfile)},
		"eventdataoutfile":           {stringKey(&s.EventDataOutfile)},
		"acceptoutfile":              {stringKey(&s.AcceptOutfile)},
		"branchratesoutfile":         {stringKey(&s.BranchRatesOutfile)},
		"autotune":                   {boolKey(&s.Autotune)},
	}
	for _, kind := range []string{"birthdeath", "move", "eventrate", "lambdainit", "lambdashift", "muinit", "mushift", "betainit", "betashift", "nodestate"} {
		kind := kind
		reg["updaterate"+kind] = keySpec{func(s *Settings, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return err
			}
			s.UpdateRates[kind] = f
			return nil
		}}
	}
	return reg
}

// Load parses a control file (spec.md §6) into a Settings, starting
// from Default() so any key the file omits keeps its conventional
// value. Unknown keys are collected and reported together; duplicate
// keys are always an error, matching spec.md §6's grammar.
func Load(path string) (Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return Settings{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	s := Default()
	reg := buildRegistry(&s)
	seen := make(map[string]bool)
	var unknown []string

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			return Settings{}, fmt.Errorf("config: %s:%d: expected 'key = value', got %q", path, lineNo, line)
		}
		rawKey := strings.TrimSpace(line[:eq])
		key := strings.ToLower(rawKey)
		val := strings.TrimSpace(line[eq+1:])

		if seen[key] {
			return Settings{}, fmt.Errorf("config: %s:%d: duplicate key %q", path, lineNo, key)
		}
		seen[key] = true

		spec, ok := reg[key]
		if !ok {
			unknown = append(unknown, fmt.Sprintf("%s:%d: %s", path, lineNo, rawKey))
			continue
		}
		if err := spec.set(&s, val); err != nil {
			return Settings{}, fmt.Errorf("config: %s:%d: key %q: %w", path, lineNo, key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return Settings{}, fmt.Errorf("config: %w", err)
	}
	if len(unknown) > 0 {
		return Settings{}, fmt.Errorf("config: unrecognised keys:\n  %s", strings.Join(unknown, "\n  "))
	}
	if err := Validate(s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks cross-field constraints a single key can't express:
// required files present, numeric ranges sane.
func Validate(s Settings) error {
	if s.TreeFile == "" {
		return fmt.Errorf("config: treefile is required")
	}
	if s.ModelType == Trait && s.TraitFile == "" {
		return fmt.Errorf("config: traitfile is required when modeltype=trait")
	}
	if s.NumberGenerations <= 0 {
		return fmt.Errorf("config: numberGenerations must be positive")
	}
	if s.SegLength <= 0 {
		return fmt.Errorf("config: segLength must be positive")
	}
	if s.GlobalSamplingFrac <= 0 || s.GlobalSamplingFrac > 1 {
		return fmt.Errorf("config: globalSamplingFraction must be in (0,1]")
	}
	if s.LoadEventData && s.EventDataInfile == "" {
		return fmt.Errorf("config: eventDataInfile is required when loadEventData=true")
	}
	return nil
}
