package location

import "strings"

// Result is a resolved geography for a free-text location. Zero value means
// no match; resolution never fails outright.
type Result struct {
    Borough      string
    Neighborhood string
    Lat          float64
    Lng          float64
    HasCoords    bool
}

type coords struct {
    lat float64
    lng float64
}

type mapping struct {
    borough      string
    neighborhood string
}

var boroughCenters = map[string]coords{
    "Manhattan":     {40.7831, -73.9712},
    "Brooklyn":      {40.6782, -73.9442},
    "Queens":        {40.7282, -73.7949},
    "The Bronx":     {40.8448, -73.8648},
    "Staten Island": {40.5795, -74.1502},
}

var neighborhoodCoords = map[string]coords{
    // Manhattan
    "harlem":              {40.8116, -73.9465},
    "east harlem":         {40.7957, -73.9389},
    "central park":        {40.7829, -73.9654},
    "times square":        {40.7580, -73.9855},
    "soho":                {40.7233, -74.0030},
    "chelsea":             {40.7465, -74.0014},
    "greenwich village":   {40.7336, -74.0027},
    "west village":        {40.7358, -74.0036},
    "east village":        {40.7264, -73.9815},
    "upper west side":     {40.7870, -73.9754},
    "upper east side":     {40.7736, -73.9566},
    "financial district":  {40.7074, -74.0113},
    "tribeca":             {40.7163, -74.0086},
    "lower east side":     {40.7154, -73.9874},
    "chinatown":           {40.7158, -73.9970},
    "little italy":        {40.7193, -73.9973},
    "nolita":              {40.7233, -73.9950},
    "union square":        {40.7359, -73.9911},
    "gramercy":            {40.7373, -73.9858},
    "murray hill":         {40.7478, -73.9754},
    "kips bay":            {40.7427, -73.9760},
    "flatiron":            {40.7411, -73.9897},
    "nomad":               {40.7448, -73.9876},
    "hells kitchen":       {40.7637, -73.9918},
    "midtown":             {40.7549, -73.9840},
    "washington heights":  {40.8505, -73.9363},
    "inwood":              {40.8677, -73.9212},
    "morningside heights": {40.8108, -73.9606},
    "battery park":        {40.7033, -74.0170},

    // Brooklyn
    "williamsburg":         {40.7081, -73.9571},
    "greenpoint":           {40.7304, -73.9519},
    "bushwick":             {40.6942, -73.9222},
    "dumbo":                {40.7033, -73.9888},
    "brooklyn heights":     {40.6955, -73.9940},
    "park slope":           {40.6710, -73.9778},
    "prospect heights":     {40.6779, -73.9690},
    "crown heights":        {40.6689, -73.9420},
    "bedford stuyvesant":   {40.6867, -73.9532},
    "bed stuy":             {40.6867, -73.9532},
    "fort greene":          {40.6915, -73.9739},
    "clinton hill":         {40.6883, -73.9662},
    "boerum hill":          {40.6863, -73.9851},
    "cobble hill":          {40.6862, -73.9961},
    "carroll gardens":      {40.6787, -73.9991},
    "gowanus":              {40.6732, -73.9965},
    "red hook":             {40.6747, -74.0112},
    "sunset park":          {40.6462, -74.0151},
    "bay ridge":            {40.6260, -74.0301},
    "bensonhurst":          {40.6017, -73.9942},
    "coney island":         {40.5755, -73.9707},
    "brighton beach":       {40.5776, -73.9596},
    "sheepshead bay":       {40.5872, -73.9393},
    "flatbush":             {40.6527, -73.9595},
    "east flatbush":        {40.6522, -73.9333},
    "canarsie":             {40.6404, -73.9002},
    "brownsville":          {40.6628, -73.9104},
    "east new york":        {40.6665, -73.8827},
    "brooklyn bridge park": {40.7018, -73.9967},

    // Queens
    "astoria":          {40.7644, -73.9235},
    "long island city": {40.7447, -73.9485},
    "lic":              {40.7447, -73.9485},
    "flushing":         {40.7676, -73.8333},
    "jackson heights":  {40.7557, -73.8831},
    "corona":           {40.7467, -73.8617},
    "elmhurst":         {40.7361, -73.8775},
    "forest hills":     {40.7189, -73.8448},
    "rego park":        {40.7265, -73.8619},
    "kew gardens":      {40.7146, -73.8308},
    "jamaica":          {40.6942, -73.8064},
    "bayside":          {40.7685, -73.7693},
    "whitestone":       {40.7943, -73.8170},
    "woodside":         {40.7456, -73.9052},
    "sunnyside":        {40.7433, -73.9196},
    "ridgewood":        {40.7006, -73.9052},
    "middle village":   {40.7173, -73.8803},
    "maspeth":          {40.7243, -73.9123},
    "glendale":         {40.7017, -73.8828},
    "rockaway":         {40.5926, -73.8070},
    "far rockaway":     {40.6052, -73.7553},

    // Bronx
    "south bronx":    {40.8242, -73.9126},
    "hunts point":    {40.8129, -73.8831},
    "mott haven":     {40.8125, -73.9195},
    "morrisania":     {40.8315, -73.9054},
    "fordham":        {40.8619, -73.8977},
    "belmont":        {40.8549, -73.8896},
    "riverdale":      {40.8958, -73.9126},
    "kingsbridge":    {40.8812, -73.9051},
    "pelham bay":     {40.8518, -73.8287},
    "city island":    {40.8470, -73.7867},
    "throgs neck":    {40.8185, -73.8234},
    "co-op city":     {40.8741, -73.8290},
    "yankee stadium": {40.8296, -73.9262},

    // Staten Island
    "st. george":    {40.6437, -74.0737},
    "saint george":  {40.6437, -74.0737},
    "stapleton":     {40.6269, -74.0779},
    "tompkinsville": {40.6357, -74.0771},
    "new brighton":  {40.6406, -74.0910},
    "port richmond": {40.6340, -74.1352},
    "great kills":   {40.5541, -74.1501},
    "tottenville":   {40.5051, -74.2515},
}

var locationMappings = map[string]mapping{
    // Manhattan
    "harlem":              {"Manhattan", "Harlem"},
    "east harlem":         {"Manhattan", "East Harlem"},
    "upper west side":     {"Manhattan", "Upper West Side"},
    "upper east side":     {"Manhattan", "Upper East Side"},
    "midtown":             {"Manhattan", "Midtown"},
    "chelsea":             {"Manhattan", "Chelsea"},
    "greenwich village":   {"Manhattan", "Greenwich Village"},
    "west village":        {"Manhattan", "West Village"},
    "east village":        {"Manhattan", "East Village"},
    "soho":                {"Manhattan", "SoHo"},
    "tribeca":             {"Manhattan", "Tribeca"},
    "financial district":  {"Manhattan", "Financial District"},
    "lower east side":     {"Manhattan", "Lower East Side"},
    "chinatown":           {"Manhattan", "Chinatown"},
    "little italy":        {"Manhattan", "Little Italy"},
    "nolita":              {"Manhattan", "Nolita"},
    "union square":        {"Manhattan", "Union Square"},
    "gramercy":            {"Manhattan", "Gramercy"},
    "murray hill":         {"Manhattan", "Murray Hill"},
    "kips bay":            {"Manhattan", "Kips Bay"},
    "flatiron":            {"Manhattan", "Flatiron"},
    "nomad":               {"Manhattan", "NoMad"},
    "hells kitchen":       {"Manhattan", "Hell's Kitchen"},
    "times square":        {"Manhattan", "Times Square"},
    "washington heights":  {"Manhattan", "Washington Heights"},
    "inwood":              {"Manhattan", "Inwood"},
    "morningside heights": {"Manhattan", "Morningside Heights"},
    "central park":        {"Manhattan", "Central Park"},
    "battery park":        {"Manhattan", "Battery Park"},

    // Brooklyn
    "williamsburg":         {"Brooklyn", "Williamsburg"},
    "greenpoint":           {"Brooklyn", "Greenpoint"},
    "bushwick":             {"Brooklyn", "Bushwick"},
    "dumbo":                {"Brooklyn", "DUMBO"},
    "brooklyn heights":     {"Brooklyn", "Brooklyn Heights"},
    "park slope":           {"Brooklyn", "Park Slope"},
    "prospect heights":     {"Brooklyn", "Prospect Heights"},
    "crown heights":        {"Brooklyn", "Crown Heights"},
    "bedford stuyvesant":   {"Brooklyn", "Bedford-Stuyvesant"},
    "bed stuy":             {"Brooklyn", "Bedford-Stuyvesant"},
    "fort greene":          {"Brooklyn", "Fort Greene"},
    "clinton hill":         {"Brooklyn", "Clinton Hill"},
    "boerum hill":          {"Brooklyn", "Boerum Hill"},
    "cobble hill":          {"Brooklyn", "Cobble Hill"},
    "carroll gardens":      {"Brooklyn", "Carroll Gardens"},
    "gowanus":              {"Brooklyn", "Gowanus"},
    "red hook":             {"Brooklyn", "Red Hook"},
    "sunset park":          {"Brooklyn", "Sunset Park"},
    "bay ridge":            {"Brooklyn", "Bay Ridge"},
    "bensonhurst":          {"Brooklyn", "Bensonhurst"},
    "coney island":         {"Brooklyn", "Coney Island"},
    "brighton beach":       {"Brooklyn", "Brighton Beach"},
    "sheepshead bay":       {"Brooklyn", "Sheepshead Bay"},
    "flatbush":             {"Brooklyn", "Flatbush"},
    "east flatbush":        {"Brooklyn", "East Flatbush"},
    "canarsie":             {"Brooklyn", "Canarsie"},
    "brownsville":          {"Brooklyn", "Brownsville"},
    "east new york":        {"Brooklyn", "East New York"},
    "brooklyn bridge park": {"Brooklyn", "Brooklyn Bridge Park"},

    // Queens
    "astoria":          {"Queens", "Astoria"},
    "long island city": {"Queens", "Long Island City"},
    "lic":              {"Queens", "Long Island City"},
    "flushing":         {"Queens", "Flushing"},
    "jackson heights":  {"Queens", "Jackson Heights"},
    "corona":           {"Queens", "Corona"},
    "elmhurst":         {"Queens", "Elmhurst"},
    "forest hills":     {"Queens", "Forest Hills"},
    "rego park":        {"Queens", "Rego Park"},
    "kew gardens":      {"Queens", "Kew Gardens"},
    "jamaica":          {"Queens", "Jamaica"},
    "bayside":          {"Queens", "Bayside"},
    "whitestone":       {"Queens", "Whitestone"},
    "woodside":         {"Queens", "Woodside"},
    "sunnyside":        {"Queens", "Sunnyside"},
    "ridgewood":        {"Queens", "Ridgewood"},
    "middle village":   {"Queens", "Middle Village"},
    "maspeth":          {"Queens", "Maspeth"},
    "glendale":         {"Queens", "Glendale"},
    "rockaway":         {"Queens", "Rockaway"},
    "far rockaway":     {"Queens", "Far Rockaway"},

    // Bronx
    "south bronx":    {"The Bronx", "South Bronx"},
    "hunts point":    {"The Bronx", "Hunts Point"},
    "mott haven":     {"The Bronx", "Mott Haven"},
    "morrisania":     {"The Bronx", "Morrisania"},
    "fordham":        {"The Bronx", "Fordham"},
    "belmont":        {"The Bronx", "Belmont"},
    "riverdale":      {"The Bronx", "Riverdale"},
    "kingsbridge":    {"The Bronx", "Kingsbridge"},
    "pelham bay":     {"The Bronx", "Pelham Bay"},
    "city island":    {"The Bronx", "City Island"},
    "throgs neck":    {"The Bronx", "Throgs Neck"},
    "co-op city":     {"The Bronx", "Co-op City"},
    "yankee stadium": {"The Bronx", "Yankee Stadium"},

    // Staten Island
    "st. george":    {"Staten Island", "St. George"},
    "saint george":  {"Staten Island", "St. George"},
    "stapleton":     {"Staten Island", "Stapleton"},
    "tompkinsville": {"Staten Island", "Tompkinsville"},
    "new brighton":  {"Staten Island", "New Brighton"},
    "port richmond": {"Staten Island", "Port Richmond"},
    "great kills":   {"Staten Island", "Great Kills"},
    "tottenville":   {"Staten Island", "Tottenville"},
}

var boroughKeywords = []struct {
    keyword string
    borough string
}{
    {"the bronx", "The Bronx"},
    {"staten island", "Staten Island"},
    {"manhattan", "Manhattan"},
    {"brooklyn", "Brooklyn"},
    {"queens", "Queens"},
    {"bronx", "The Bronx"},
}

// Longer keys first so "east village" wins over "village"-adjacent keys and
// "east harlem" beats "harlem".
var orderedMappingKeys = sortedMappingKeys()

func sortedMappingKeys() []string {
    keys := make([]string, 0, len(locationMappings))
    for k := range locationMappings {
        keys = append(keys, k)
    }
    for i := 1; i < len(keys); i++ {
        for j := i; j > 0 && len(keys[j]) > len(keys[j-1]); j-- {
            keys[j], keys[j-1] = keys[j-1], keys[j]
        }
    }
    return keys
}

// lookupStatic matches a free-text location against the gazetteer. Coordinate
// fallback order: neighborhood center, then borough center.
func lookupStatic(location string) Result {
    if location == "" {
        return Result{}
    }
    lower := strings.ToLower(location)

    for _, key := range orderedMappingKeys {
        if !strings.Contains(lower, key) {
            continue
        }
        m := locationMappings[key]
        res := Result{Borough: m.borough, Neighborhood: m.neighborhood}
        if c, ok := neighborhoodCoords[key]; ok {
            res.Lat, res.Lng, res.HasCoords = c.lat, c.lng, true
        } else if c, ok := boroughCenters[m.borough]; ok {
            res.Lat, res.Lng, res.HasCoords = c.lat, c.lng, true
        }
        return res
    }

    for _, bk := range boroughKeywords {
        if strings.Contains(lower, bk.keyword) {
            c := boroughCenters[bk.borough]
            return Result{Borough: bk.borough, Lat: c.lat, Lng: c.lng, HasCoords: true}
        }
    }
    return Result{}
}
